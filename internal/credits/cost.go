package credits

// RequiredCredits computes the cost of a session in credits. Pure; used for
// both pre-flight checks and actual deductions.
//
// Time-bounded modes price the session size (in seconds) in whole intervals,
// rounded up, so a one-second session still costs a full interval. Fixed-cost
// modes ignore the session size entirely.
func RequiredCredits(size SessionSize, mode GameMode, maxPerRequest int64) (int64, error) {
	policy, err := PolicyFor(mode)
	if err != nil {
		return 0, err
	}
	units := size.Questions(maxPerRequest)
	switch {
	case policy.PerInterval != nil:
		interval := policy.PerInterval
		buckets := (units + interval.IntervalSeconds - 1) / interval.IntervalSeconds
		return buckets * interval.CreditsPerInterval, nil
	case policy.FixedCost > 0:
		return policy.FixedCost, nil
	default:
		perQuestion := policy.CostPerQuestion
		if perQuestion == 0 {
			perQuestion = 1
		}
		return units * perQuestion, nil
	}
}
