package generator

import "sync"

// State は生成対象ごとの進行状態です。
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Progress はプロセス内で対象ごとの状態を保持します。
// 二重起動の排他は呼び出し側（UI やサーバー）が Begin で行い、生成処理そのものは強制しません。
type Progress struct {
	mu     sync.RWMutex
	states map[string]State
}

func NewProgress() *Progress {
	return &Progress{states: make(map[string]State)}
}

// State は対象の状態を返します。記録がなければ StateIdle です。
func (p *Progress) State(id string) State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.states[id]; ok {
		return s
	}
	return StateIdle
}

// Begin は対象が生成中でなければ generating にして true を返します。
func (p *Progress) Begin(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.states[id] == StateGenerating {
		return false
	}
	p.states[id] = StateGenerating
	return true
}

// Release は Begin したものの生成を始めなかった対象を idle に戻します。
func (p *Progress) Release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.states[id] == StateGenerating {
		delete(p.states, id)
	}
}

func (p *Progress) set(id string, s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[id] = s
}

// Snapshot は現在の状態のコピーを返します。
func (p *Progress) Snapshot() map[string]State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]State, len(p.states))
	for k, v := range p.states {
		out[k] = v
	}
	return out
}
