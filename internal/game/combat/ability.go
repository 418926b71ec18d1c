package combat

// Ability is a module that hooks a combatant's feature into an encounter by
// subscribing listeners on the encounter's bus.
type Ability interface {
	// ID returns the feature identifier, such as "sneak_attack".
	ID() string
	// Attach subscribes the ability's listeners for owner.
	//
	// Postcondition: a non-nil error aborts encounter construction.
	Attach(owner *Combatant, enc *Encounter) error
}

// Releaser is implemented by abilities that hold resources beyond the
// encounter's lifetime, such as a script interpreter.
type Releaser interface {
	Release()
}

// AbilityFunc adapts a plain attach function with an ID to Ability.
type AbilityFunc struct {
	Name string
	Fn   func(owner *Combatant, enc *Encounter) error
}

// ID returns Name.
func (a AbilityFunc) ID() string { return a.Name }

// Attach calls Fn.
func (a AbilityFunc) Attach(owner *Combatant, enc *Encounter) error { return a.Fn(owner, enc) }
