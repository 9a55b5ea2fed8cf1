package taxonomy

// Default returns the built-in table distilled from the classifier
// vocabularies the pipeline ingests today: Lasair sherlock classes,
// the ALeRCE stamp and light-curve classifiers, and Fink classes,
// grouped under the canonical top-level categories. The services use
// it whenever no taxonomy file is configured.
func Default() *Table {
	t, err := New(File{
		Labels: map[string]map[string]map[string]string{
			"Lasair": {
				LevelAny: {
					"VS":     "RR Lyrae",
					"CV":     "CV/Nova",
					"SN":     "SNII",
					"ORPHAN": "Unknown",
					"AGN":    "Quasar",
					"NT":     "AGN Other",
				},
			},
			"ALeRCE": {
				"stamp_classifier": {
					"bogus":    "Bogus",
					"asteroid": "Asteroid",
					"SN":       "SNII",
					"AGN":      "Quasar",
					"VS":       "RR Lyrae",
				},
				"lc_classifier": {
					"E":              "Eclipsing Binary",
					"DSCT":           "del Scuti",
					"RRL":            "RR Lyrae",
					"CEP":            "Cepheid",
					"LPV":            "LPV",
					"QSO":            "Quasar",
					"Blazar":         "Blazar",
					"AGN":            "AGN Other",
					"YSO":            "YSO",
					"CV/Nova":        "CV/Nova",
					"SNIa":           "SNIa",
					"SNIbc":          "SNIb/c",
					"SNII":           "SNII",
					"SLSN":           "SLSN",
					"Microlensing":   "Microlensing",
					"Periodic-Other": "Pulsating Other",
				},
			},
			"Fink": {
				LevelAny: {
					"QSO":    "Quasar",
					"mulens": "Microlensing",
					"sso":    "Solar System Object",
					"KN":     "SN Other",
				},
			},
		},
		Ancestry: map[string]string{
			"SNIa":     "Supernova",
			"SNIb/c":   "Supernova",
			"SNII":     "Supernova",
			"SLSN":     "Supernova",
			"SN Other": "Supernova",

			"Quasar":    "AGN",
			"Blazar":    "AGN",
			"AGN Other": "AGN",

			"RR Lyrae":        "Pulsating",
			"Cepheid":         "Pulsating",
			"del Scuti":       "Pulsating",
			"LPV":             "Pulsating",
			"Pulsating Other": "Pulsating",

			"Eclipsing Binary": "Extrinsic Variability",
			"Rotating":         "Extrinsic Variability",

			"Bogus":               "Other",
			"Asteroid":            "Other",
			"Solar System Object": "Other",
			"YSO":                 "Other",
			"CV/Nova":             "Other",
			"Microlensing":        "Other",
			"Unknown":             "Other",

			"Supernova":             RootCode,
			"AGN":                   RootCode,
			"Pulsating":             RootCode,
			"Extrinsic Variability": RootCode,
			"Other":                 RootCode,
		},
	})
	if err != nil {
		// The built-in table is covered by tests; a failure here is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return t
}
