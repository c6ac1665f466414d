package stats

// SubcorticalMapping returns the fixed mapping for the segmentation report
// (aseg.stats): four subcortical structure volumes plus intracranial volume.
func SubcorticalMapping() Mapping {
	return Mapping{
		Scalars: map[string]MetricSpec{
			"Intracranial Vol": {Name: "icv", Unit: UnitVolume},
		},
		Rows: map[string]MetricSpec{
			"Left-Hippocampus":  {Name: "hippocampus_left", Unit: UnitVolume},
			"Right-Hippocampus": {Name: "hippocampus_right", Unit: UnitVolume},
			"Left-Amygdala":     {Name: "amygdala_left", Unit: UnitVolume},
			"Right-Amygdala":    {Name: "amygdala_right", Unit: UnitVolume},
		},
		NameColumn:  "StructName",
		ValueColumn: "Volume_mm3",
	}
}

// CorticalMapping returns the fixed mapping for one hemisphere's parcellation
// report. Only whole-hemisphere summary scalars are mapped; per-region rows
// are ignored.
func CorticalMapping(hemi string) Mapping {
	suffix := "_" + hemi
	return Mapping{
		Scalars: map[string]MetricSpec{
			"mean thickness":           {Name: "mean_thickness" + suffix, Unit: UnitThickness},
			"total surface area":       {Name: "total_area" + suffix, Unit: UnitArea},
			"total gray matter volume": {Name: "gray_volume" + suffix, Unit: UnitVolume},
		},
		NameColumn:  "StructName",
		ValueColumn: "ThickAvg",
	}
}
