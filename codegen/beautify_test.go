package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBeautify(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "nested blocks are indented by depth",
			src:  "async () => {\nif (driver) {\nawait driver.quit();\n}\n}",
			want: "async () => {\n  if (driver) {\n    await driver.quit();\n  }\n}",
		},
		{
			name: "closing line dedents before printing",
			src:  "describe(\"s\", () => {\ntest(\"t\", async () => {\n});\n});",
			want: "describe(\"s\", () => {\n    test(\"t\", async () => {\n    });\n});",
		},
		{
			name: "braces inside strings do not nest",
			src:  "console.log(\"{ not a block\");\nconsole.log(\"done\");",
			want: "console.log(\"{ not a block\");\nconsole.log(\"done\");",
		},
		{
			name: "braces after line comment do not nest",
			src:  "// opening { here\nconsole.log(1);",
			want: "// opening { here\nconsole.log(1);",
		},
		{
			name: "blank lines survive",
			src:  "a();\n\nb();",
			want: "a();\n\nb();",
		},
		{
			name: "existing indentation is replaced",
			src:  "fn({\n        key: 1,\n});",
			want: "fn({\n    key: 1,\n});",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Beautify(tt.src))
		})
	}
}
