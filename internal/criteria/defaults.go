package criteria

// Default returns the shipped criteria document. A YAML override file
// loaded through Load replaces it wholesale; there is no per-field
// merging, so an override must be a complete document.
func Default() *Document {
	return &Document{
		Version: "2026.1",
		Universe: UniverseCriteria{
			MinMarketCap:  10_000_000_000,
			ScreenerLimit: 10000,
			ExcludedNameTokens: []string{
				"ETF", "FUND", "TRUST", "INDEX", "ISHARES", "VANGUARD", "SPDR",
			},
			ExcludedSectors: []string{
				"Financial Services", "Energy", "Utilities", "Real Estate",
			},
			ExcludedIndustries: []string{
				"Banks - Regional",
				"Banks - Diversified",
				"Insurance - Property & Casualty",
				"Insurance - Diversified",
				"Insurance - Life",
				"Insurance - Reinsurance",
				"Gold",
				"Coal",
				"Steel",
				"Oil & Gas Exploration & Production",
				"Oil & Gas Integrated",
				"Oil & Gas Equipment & Services",
				"Oil & Gas Midstream",
				"Other Precious Metals & Mining",
				"Silver",
				"Copper",
				"Uranium",
				"Marine Shipping",
				"Tobacco",
			},
			// Quality financials kept despite the sector exclusion:
			// conglomerates, card networks, insurance distributors.
			Whitelist: []string{"BRK-A", "BRK-B", "BBSEY", "DFS", "MA", "V", "AXP"},
		},
		HardFilter: HardFilterCriteria{
			MinHistoryYears:        4,
			ROIICMin:               0.25,
			ROIICOverrideFloor:     0.15,
			HistoricalROICMin:      0.20,
			HistoricalROICYears:    3,
			SpreadMin:              0.15,
			RevenueGrowthMin:       0.15,
			RevenueGrowthYears:     3,
			FCFConversionMin:       0.90,
			FCFConversionOverride:  0.70,
			GrossMarginMin:         0.60,
			MarginDeclineTolerance: 0.05,
			CapexToRevenueMax:      0.07,
			NetDebtEBITDAMax:       2.0,
			MinMarketCap:           10_000_000_000,
			ReinvestmentFlagBelow:  0.30,
			ROICPlausibilityCap:    1.50,
			ROICCappedIndustryCap:  0.60,
			ROICCappedIndustries:   []string{"Asset Management", "Financial - Capital Markets"},
		},
		Quality: QualityCriteria{
			// 하드 필터를 통과한 것 자체가 강한 신호라서 게이트 바로 위
			// 구간에도 후하게 배점한다 (차터 시나리오 기준으로 보정).
			ROIICSteps:              []Step{{0.40, 30}, {0.25, 25}, {0.20, 15}},
			RunwayGrowthMultipliers: []GrowthMultiplier{{0.25, 1.3}, {0.20, 1.2}, {0.15, 1.1}},
			RunwayCapSteps:          []Step{{100e9, 20}, {50e9, 15}, {10e9, 10}},
			RunwayBasePoints:        5,
			GrowthSteps:             []Step{{0.20, 20}, {0.15, 15}, {0.10, 10}},
			FCFConversionSteps:      []Step{{1.00, 15}, {0.95, 12}, {0.90, 8}},
			MarginExpandingPoints:   10,
			MarginStablePoints:      5,
			MarginDecliningPoints:   0,
			CapexSteps:              []StepDown{{0.03, 5}, {0.05, 3}},
			CapexMissingPoints:      3,
			ExceptionalMin:          80,
			EliteMin:                70,
			QualityMin:              60,
			AdvanceMin:              70,
		},
		Valuation: ValuationCriteria{
			RiskFreeRate:      0.043,
			EquityRiskPremium: 0.052,
			BetaFloor:         0.8,
			BetaCeiling:       1.4,
			BetaDefault:       1.0,
			CostOfDebtCap:     0.15,
			DefaultTaxRate:    0.21,
			TaxRateCeiling:    0.60,
			WACCFloor:         0.06,
			WACCCeiling:       0.14,

			CapitalReturnerReinvestment: 0.35,
			GrowthFloor:                 0.04,
			GrowthCeiling:               0.20,
			MatureGrowth:                0.06,
			TerminalGrowth:              0.03,
			ProjectionYears:             15,
			HighGrowthYears:             5,

			MinPeriods:  4,
			ROIICWindow: 3,

			EntryTargets:    []float64{0.15, 0.12, 0.10},
			VerdictBuyMin:   0.15,
			VerdictWatchMin: 0.12,
			VerdictHoldMin:  0.08,

			Ensemble: EnsembleCriteria{
				ROICCap:               0.50,
				HoldingYears:          5,
				ReinvestmentGrowthCap: 0.35,

				ConservativeGrowthCap:     0.30,
				ConservativeHistoricalCap: 0.20,
				HybridGrowthCap:           0.35,
				HybridHistoricalCap:       0.15,
				ImpliedIRRCap:             0.40,

				HighPERatio:      2.0,
				EliteCompression: 0.75,
				HighCompression:  0.80,

				PEGBands:        []PEGBand{{1.0, 0.02}, {1.5, 0.0}, {2.5, -0.02}},
				DefaultPEGDrift: -0.04,

				TwoFactorTiers: []ExitTier{
					{ROICMin: 0.30, GrossMarginMin: 0.50, Label: "elite", ExitPE: 30},
					{ROICMin: 0.20, GrossMarginMin: 0.40, Label: "high", ExitPE: 25},
					{Label: "solid", ExitPE: 20},
				},
				ROICOnlyTiers: []ExitTier{
					{ROICMin: 0.30, Label: "elite", ExitPE: 26.5},
					{ROICMin: 0.20, Label: "high", ExitPE: 21},
					{Label: "solid", ExitPE: 16.5},
				},
				ThreeFactorTiers: []ExitTier{
					{ROICMin: 0.30, GrossMarginMin: 0.60, OperatingMarginMin: 0.30, Label: "elite", ExitPE: 28},
					{ROICMin: 0.20, GrossMarginMin: 0.45, OperatingMarginMin: 0.20, Label: "high", ExitPE: 22},
					{ROICMin: 0.15, GrossMarginMin: 0.35, OperatingMarginMin: 0.15, Label: "solid", ExitPE: 18},
					{Label: "value", ExitPE: 15},
				},
				ROICLadderTiers: []ExitTier{
					{ROICMin: 0.40, Label: "elite", ExitPE: 25},
					{ROICMin: 0.25, Label: "high", ExitPE: 20},
					{ROICMin: 0.15, Label: "solid", ExitPE: 16},
					{Label: "value", ExitPE: 12},
				},
				ConsensusTiers: []ExitTier{
					{ROICMin: 0.30, GrossMarginMin: 0.50, OperatingMarginMin: 0.25, Label: "elite", ExitPE: 28},
					{ROICMin: 0.20, GrossMarginMin: 0.40, Label: "high", ExitPE: 23},
					{ROICMin: 0.15, Label: "solid", ExitPE: 18},
					{Label: "value", ExitPE: 15},
				},
			},
		},
	}
}
