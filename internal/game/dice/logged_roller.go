package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged dice rolling.
// All rolls are logged at debug level with expression, dice values, modifier, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src must be non-nil. A nil logger is replaced with zap.NewNop().
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying random source.
func (r *Roller) Source() Source {
	return r.src
}

// Roll evaluates expr and logs the result at debug level.
func (r *Roller) Roll(expr Expression) (RollResult, error) {
	result, err := Roll(expr, r.src)
	if err != nil {
		return RollResult{}, err
	}
	if ce := r.logger.Check(zap.DebugLevel, "dice roll"); ce != nil {
		ce.Write(
			zap.String("expression", result.Expression),
			zap.Ints("dice", result.Dice),
			zap.Ints("dropped", result.Dropped),
			zap.Int("modifier", result.Modifier),
			zap.Int("total", result.Total()),
		)
	}
	return result, nil
}

// RollDice rolls count dice of the given sides and logs them at debug level.
func (r *Roller) RollDice(count, sides int) []int {
	rolled := RollDice(count, sides, r.src)
	if ce := r.logger.Check(zap.DebugLevel, "dice roll"); ce != nil {
		ce.Write(zap.Int("count", count), zap.Int("sides", sides), zap.Ints("dice", rolled))
	}
	return rolled
}

// RollD20 draws an independent d20 pair and logs it at debug level.
func (r *Roller) RollD20() D20 {
	d := RollPair(r.src)
	if ce := r.logger.Check(zap.DebugLevel, "d20 roll"); ce != nil {
		ce.Write(zap.Int("first", d.First), zap.Int("second", d.Second))
	}
	return d
}

// RollDie rolls one die without logging; used for high-volume rerolls.
func (r *Roller) RollDie(sides int) int {
	return RollDie(sides, r.src)
}

// RollMode rolls a single d20 check under mode and logs both dice when two
// are drawn. Normal mode draws one die.
func (r *Roller) RollMode(mode Mode) int {
	var kept int
	var d D20
	switch mode {
	case Advantage:
		kept, d = RollAdvantage(r.src)
	case Disadvantage:
		kept, d = RollDisadvantage(r.src)
	default:
		return RollDie(20, r.src)
	}
	if ce := r.logger.Check(zap.DebugLevel, "d20 roll"); ce != nil {
		ce.Write(zap.Int("first", d.First), zap.Int("second", d.Second), zap.Int("kept", kept))
	}
	return kept
}
