package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name         string
		version      string
		wantOutdated bool
		wantErr      bool
	}{
		{name: "supported version accepted", version: "2.0", wantOutdated: false, wantErr: false},
		{name: "newer minor within supported major accepted", version: "2.1", wantOutdated: false, wantErr: false},
		{name: "older major accepted with warning", version: "1.1", wantOutdated: true, wantErr: false},
		{name: "newer major rejected", version: "3.0", wantOutdated: false, wantErr: true},
		{name: "missing version rejected", version: "", wantOutdated: false, wantErr: true},
		{name: "garbage version rejected", version: "two point oh", wantOutdated: false, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Project{Name: "Smoke", Version: tt.version}

			outdated, err := p.CheckVersion()

			if tt.wantErr {
				var versionErr *VersionError
				require.ErrorAs(t, err, &versionErr)
				assert.Equal(t, tt.version, versionErr.Version)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantOutdated, outdated)
		})
	}
}
