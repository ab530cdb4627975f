// Package state drives the game-wide phase: lobby, playing, won.
package state

import (
	"errors"
	"sync"
)

// StateMachine moves between states, honouring guarded transitions.
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
}

// State is one phase of the machine.
type State interface {
	OnEnter()
	OnExit()
	GetID() string
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// BaseStateMachine is the default StateMachine. A transition with no
// registered condition is allowed.
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	current := sm.currentState

	if conditions, exists := sm.transitions[current.GetID()]; exists {
		if condition, exists := conditions[newState.GetID()]; exists {
			if condition != nil && !condition() {
				sm.mutex.Unlock()
				return ErrTransitionNotAllowed
			}
		}
	}
	sm.currentState = newState
	sm.mutex.Unlock()

	// Hooks run outside the lock so they may query the machine.
	current.OnExit()
	newState.OnEnter()
	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	return nil
}

// Is reports whether the machine currently sits in the state with the given ID.
func (sm *BaseStateMachine) Is(id string) bool {
	return sm.GetCurrentState().GetID() == id
}
