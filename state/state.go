package state

import "errors"

// Phase 表示一局游戏会话的生命周期阶段
type Phase string

const (
	PhaseLobby  Phase = "lobby"  // 等待房主开始
	PhaseActive Phase = "active" // 游戏进行中
	PhaseWon    Phase = "won"    // 终态：夺宝成功
	PhaseLost   Phase = "lost"   // 终态：倒计时耗尽
)

// ErrTransitionNotAllowed is returned when a phase transition is not allowed.
var ErrTransitionNotAllowed = errors.New("phase transition not allowed")

// transitions 定义合法的阶段转换；终态没有出边
var transitions = map[Phase][]Phase{
	PhaseLobby:  {PhaseActive},
	PhaseActive: {PhaseWon, PhaseLost},
}

// Terminal reports whether the phase has no outgoing transitions.
func (p Phase) Terminal() bool {
	return p == PhaseWon || p == PhaseLost
}

// Machine 是一个极简状态机：当前阶段加上一张合法转换表。
// 它不带锁，调用方（房间）负责串行化访问。
type Machine struct {
	current Phase
}

// NewMachine creates a machine starting in the lobby phase.
func NewMachine() *Machine {
	return &Machine{current: PhaseLobby}
}

// Current returns the current phase.
func (m *Machine) Current() Phase {
	return m.current
}

// Transition moves to the target phase if the edge is legal.
func (m *Machine) Transition(to Phase) error {
	for _, allowed := range transitions[m.current] {
		if allowed == to {
			m.current = to
			return nil
		}
	}
	return ErrTransitionNotAllowed
}
