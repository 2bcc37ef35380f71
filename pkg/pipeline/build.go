package pipeline

import (
	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
	"github.com/ajitpratap0/vehicleinsurance/pkg/features"
	"github.com/ajitpratap0/vehicleinsurance/pkg/model"
)

// Step names of the production chain.
const (
	StepMapGender          = "map_gender"
	StepScaleCols          = "scale_cols"
	StepScaleAnnualPremium = "scale_annualpremium"
	StepEncodeCols         = "encode_cols"
	StepRenameColumns      = "rename_columns"
	StepDropColumns        = "drop_columns"
	StepModel              = "model_rf"
)

// NewFromConfig builds the unfitted vehicle-insurance chain:
//
//	map_gender -> scale_cols -> scale_annualpremium -> encode_cols ->
//	rename_columns -> drop_columns -> model_rf
func NewFromConfig(cfg *config.Config) *Chain {
	m := cfg.Model
	degenerate := features.DegeneratePolicy(m.DegenerateScalePolicy)

	rename, ints := IndicatorRenames(m.VehicleAgeVar, m.VehicleDamageVar)

	forest := model.NewRandomForest(
		model.WithNEstimators(m.NEstimators),
		model.WithForestMaxDepth(m.MaxDepth),
		model.WithForestMinSamplesSplit(m.MinSamplesSplit),
		model.WithForestMinSamplesLeaf(m.MinSamplesLeaf),
		model.WithForestCriterion(m.Criterion),
		model.WithForestMaxFeatures(m.MaxFeatures),
		model.WithForestRandomState(m.RandomState),
	)

	return New(cfg.App.PipelineName, StepModel, forest,
		Step{StepMapGender, features.NewMapper(m.GenderVar, m.GenderMappings)},
		Step{StepScaleCols, features.NewStandardScaler(degenerate, m.AgeVar, m.VintageVar)},
		Step{StepScaleAnnualPremium, features.NewMinMaxScaler(degenerate, m.AnnualPremiumVar)},
		Step{StepEncodeCols, features.NewOneHotEncoder(features.UnknownPolicy(m.UnknownCategoryPolicy), m.VehicleAgeVar, m.VehicleDamageVar)},
		Step{StepRenameColumns, features.NewRenamer(rename, ints...)},
		Step{StepDropColumns, features.NewDropper(m.IDVar)},
	)
}

// IndicatorRenames returns the rename map for the vehicle-age indicators
// whose category text is not identifier-safe, and the indicator columns
// cast to integers afterwards.
func IndicatorRenames(vehicleAgeVar, vehicleDamageVar string) (map[string]string, []string) {
	lt := vehicleAgeVar + "_lt_1_Year"
	gt := vehicleAgeVar + "_gt_2_Years"
	return map[string]string{
		vehicleAgeVar + "_< 1 Year":  lt,
		vehicleAgeVar + "_> 2 Years": gt,
	}, []string{lt, gt, vehicleDamageVar + "_Yes"}
}
