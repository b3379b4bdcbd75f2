package config

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() {
	if c.Compilation.Framework == "" {
		c.Compilation.Framework = DefaultFramework
	}
	if len(c.Compilation.InputShapes) == 0 {
		c.Compilation.InputShapes = DefaultInputShapes()
	}
	if c.Compilation.TargetOS == "" {
		c.Compilation.TargetOS = DefaultTargetOS
	}
	if c.Compilation.TargetArch == "" {
		c.Compilation.TargetArch = DefaultTargetArch
	}
	if c.Compilation.MaxRuntimeSeconds == 0 {
		c.Compilation.MaxRuntimeSeconds = DefaultMaxRuntimeSeconds
	}

	if c.Packaging.ModelName == "" {
		c.Packaging.ModelName = DefaultModelName
	}
	if c.Packaging.PublishMode == "" {
		c.Packaging.PublishMode = PublishPreset
	}

	comps := &c.Components
	if comps.Nucleus.Name == "" {
		comps.Nucleus.Name = DefaultNucleusComponent
	}
	if comps.Nucleus.Version == "" {
		comps.Nucleus.Version = DefaultNucleusVersion
	}
	if comps.CLI.Name == "" {
		comps.CLI.Name = DefaultCLIComponent
	}
	if comps.CLI.Version == "" {
		comps.CLI.Version = DefaultCLIVersion
	}
	if em := comps.EdgeManager; em != nil {
		if em.Name == "" {
			em.Name = DefaultEdgeManagerComponent
		}
		if em.Version == "" {
			em.Version = DefaultEdgeManagerVersion
		}
		if em.DeviceFleetName == "" {
			em.DeviceFleetName = DefaultDeviceFleetName
		}
	}
	if comps.Model.Name == "" {
		comps.Model.Name = DefaultModelComponent
	}
	if comps.Model.ModelPath == "" {
		comps.Model.ModelPath = "../" + comps.Model.Name
	}
	if comps.Inference.Name == "" {
		comps.Inference.Name = DefaultInferenceComponent
	}
	if comps.Inference.InferenceIntervalSeconds == 0 {
		comps.Inference.InferenceIntervalSeconds = DefaultInferenceInterval
	}

	switch c.Checkpoint.Backend {
	case "":
		c.Checkpoint.Backend = CheckpointFile
		fallthrough
	case CheckpointFile:
		if c.Checkpoint.Dir == "" {
			c.Checkpoint.Dir = DefaultCheckpointDir
		}
	case CheckpointS3:
		if c.Checkpoint.Prefix == "" {
			c.Checkpoint.Prefix = DefaultCheckpointPrefix
		}
	}
}
