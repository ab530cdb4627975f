package state

// Phase IDs of a dungeon game.
const (
	PhaseLobby   = "lobby"
	PhasePlaying = "playing"
	PhaseWon     = "won"
)

// PhaseState is a State whose hooks are plain funcs.
type PhaseState struct {
	ID    string
	Enter func()
	Exit  func()
}

func (s *PhaseState) GetID() string {
	return s.ID
}

func (s *PhaseState) OnEnter() {
	if s.Enter != nil {
		s.Enter()
	}
}

func (s *PhaseState) OnExit() {
	if s.Exit != nil {
		s.Exit()
	}
}

// GamePhases bundles the three phases of a game and the machine linking them.
type GamePhases struct {
	*BaseStateMachine
	Lobby   *PhaseState
	Playing *PhaseState
	Won     *PhaseState
}

// NewGamePhases wires lobby -> playing -> won. Won is terminal: every
// transition out of it is refused, and lobby can never jump straight to won.
func NewGamePhases(onPlaying, onWon func()) *GamePhases {
	p := &GamePhases{
		Lobby:   &PhaseState{ID: PhaseLobby},
		Playing: &PhaseState{ID: PhasePlaying, Enter: onPlaying},
		Won:     &PhaseState{ID: PhaseWon, Enter: onWon},
	}
	p.BaseStateMachine = NewBaseStateMachine(p.Lobby)

	never := func() bool { return false }
	p.AddTransition(p.Lobby, p.Won, never)
	p.AddTransition(p.Won, p.Lobby, never)
	p.AddTransition(p.Won, p.Playing, never)
	p.AddTransition(p.Won, p.Won, never)
	p.AddTransition(p.Playing, p.Lobby, never)
	p.AddTransition(p.Playing, p.Playing, never)
	return p
}
