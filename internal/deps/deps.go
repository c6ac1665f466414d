// Package deps verifies that the external tools the pipeline shells out to
// are actually installed before any multi-hour stage starts.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"neuroflow/internal/config"
)

// Requirement defines an external dependency the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// FromConfig derives the requirement set for the configured execution mode.
// Docker mode needs the docker client instead of a host recon-all.
func FromConfig(cfg *config.Config) []Requirement {
	requirements := []Requirement{
		{
			Name:        "dcm2niix",
			Command:     cfg.Conversion.Binary,
			Description: "DICOM to NIfTI converter",
		},
	}
	if cfg.Reconstruction.UseDocker {
		requirements = append(requirements, Requirement{
			Name:        "docker",
			Command:     "docker",
			Description: fmt.Sprintf("container runtime for %s", cfg.Reconstruction.DockerImage),
		})
	} else {
		requirements = append(requirements, Requirement{
			Name:        "recon-all",
			Command:     cfg.Reconstruction.Binary,
			Description: "FreeSurfer cortical reconstruction",
		})
	}
	return requirements
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckLicense verifies the FreeSurfer license file when one is configured.
// Docker mode requires it; native mode can rely on the installation default.
func CheckLicense(cfg *config.Config) Status {
	status := Status{
		Name:        "freesurfer license",
		Command:     cfg.Reconstruction.LicensePath,
		Description: "FreeSurfer license file",
		Optional:    !cfg.Reconstruction.UseDocker,
	}
	path := strings.TrimSpace(cfg.Reconstruction.LicensePath)
	if path == "" {
		status.Detail = "license_path not configured"
		return status
	}
	if _, err := os.Stat(path); err != nil {
		status.Detail = fmt.Sprintf("license file %q not readable", path)
		return status
	}
	status.Available = true
	return status
}
