package config

const (
	defaultWorkDir             = "~/.local/share/neuroflow"
	defaultSubjectsDir         = "~/.local/share/neuroflow/subjects"
	defaultNiftiDir            = "~/.local/share/neuroflow/nifti"
	defaultLogDir              = "~/.local/share/neuroflow/logs"
	defaultConversionBinary    = "dcm2niix"
	defaultConversionTimeout   = 300
	defaultReconBinary         = "recon-all"
	defaultFreesurferHome      = "/opt/freesurfer"
	defaultReconTimeout        = 36000
	defaultReconRetryTimeout   = 54000
	defaultDockerImage         = "freesurfer/freesurfer:latest"
	defaultExpectedModality    = "MR"
	defaultModalitySampleLimit = 10
	defaultLineTolerance       = 25
	defaultBatchWorkers        = 4
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:     defaultWorkDir,
			SubjectsDir: defaultSubjectsDir,
			NiftiDir:    defaultNiftiDir,
			LogDir:      defaultLogDir,
		},
		Conversion: Conversion{
			Binary:         defaultConversionBinary,
			TimeoutSeconds: defaultConversionTimeout,
		},
		Reconstruction: Reconstruction{
			Binary:              defaultReconBinary,
			FreesurferHome:      defaultFreesurferHome,
			TimeoutSeconds:      defaultReconTimeout,
			RetryTimeoutSeconds: defaultReconRetryTimeout,
			DockerImage:         defaultDockerImage,
		},
		Validation: Validation{
			ExpectedModality: defaultExpectedModality,
			SampleLimit:      defaultModalitySampleLimit,
		},
		Extraction: Extraction{
			LineTolerance: defaultLineTolerance,
		},
		Batch: Batch{
			Workers: defaultBatchWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
