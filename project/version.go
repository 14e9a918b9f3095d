package project

import (
	"fmt"

	version "github.com/hashicorp/go-version"
)

// SupportedVersion is the newest project document format this runner
// understands. Documents with a newer major version are rejected; older
// majors are run on a best-effort basis with a warning.
const SupportedVersion = "2.0"

// VersionError reports an unsupported project format version. It is fatal to
// that project only.
type VersionError struct {
	Project string
	Version string
	Reason  string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("project %q declares format version %q: %s", e.Project, e.Version, e.Reason)
}

// CheckVersion gates a project on its declared format version. It returns
// outdated=true when the document is older than, but still accepted by, this
// runner, so the caller can warn without failing the project.
func (p *Project) CheckVersion() (outdated bool, err error) {
	if p.Version == "" {
		return false, &VersionError{Project: p.Name, Version: p.Version, Reason: "no format version declared"}
	}

	declared, parseErr := version.NewVersion(p.Version)
	if parseErr != nil {
		return false, &VersionError{Project: p.Name, Version: p.Version, Reason: parseErr.Error()}
	}
	supported := version.Must(version.NewVersion(SupportedVersion))

	declaredMajor := declared.Segments()[0]
	supportedMajor := supported.Segments()[0]
	switch {
	case declaredMajor > supportedMajor:
		return false, &VersionError{
			Project: p.Name,
			Version: p.Version,
			Reason:  fmt.Sprintf("newer than the supported format (%s), upgrade the runner", SupportedVersion),
		}
	case declaredMajor < supportedMajor:
		return true, nil
	default:
		return false, nil
	}
}
