package credits

import "errors"

var ErrUnknownMode = errors.New("unknown game mode")

type GameMode string

const (
	ModeClassic    GameMode = "classic"
	ModeDuel       GameMode = "duel"
	ModeTimeAttack GameMode = "time_attack"
	ModeDailyQuiz  GameMode = "daily_quiz"
)

type IntervalCost struct {
	CreditsPerInterval int64
	IntervalSeconds    int64
}

// CostPolicy selects how a session is priced. Exactly one of CostPerQuestion,
// FixedCost and PerInterval is meaningful per mode; zero CostPerQuestion on a
// per-question mode means one credit per question.
type CostPolicy struct {
	CostPerQuestion        int64
	FixedCost              int64
	PerInterval            *IntervalCost
	ChargeAfterSessionEnds bool
	OnlyPrimaryPlayerPays  bool
}

var policies = map[GameMode]CostPolicy{
	ModeClassic: {CostPerQuestion: 1},
	ModeDuel:    {CostPerQuestion: 1, OnlyPrimaryPlayerPays: true},
	ModeTimeAttack: {
		PerInterval:            &IntervalCost{CreditsPerInterval: 5, IntervalSeconds: 30},
		ChargeAfterSessionEnds: true,
	},
	ModeDailyQuiz: {FixedCost: 10},
}

func PolicyFor(mode GameMode) (CostPolicy, error) {
	policy, ok := policies[mode]
	if !ok {
		return CostPolicy{}, ErrUnknownMode
	}
	return policy, nil
}

func ValidMode(mode GameMode) bool {
	_, ok := policies[mode]
	return ok
}
