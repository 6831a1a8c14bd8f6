package network

import (
	gosync "sync"
)

// State - состояние связи: offline, online без подтверждения, connected.
type State struct {
	Online    bool
	Connected bool
}

// Connectivity хранит состояние связи. Переход в connected требует
// сигнала online и успешной проверки доступности.
type Connectivity struct {
	mu        gosync.RWMutex
	state     State
	listeners map[int]func(State)
	nextID    int
}

func NewConnectivity(online bool) *Connectivity {
	return &Connectivity{
		state:     State{Online: online},
		listeners: make(map[int]func(State)),
	}
}

func (c *Connectivity) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Connectivity) Online() bool    { return c.State().Online }
func (c *Connectivity) Connected() bool { return c.State().Connected }

// SetOnline принимает сигнал среды выполнения. Потеря сети сбрасывает подтверждение,
// появление сети оставляет состояние неподтвержденным до Confirm.
func (c *Connectivity) SetOnline(online bool) {
	c.update(func(s State) State {
		if !online {
			return State{}
		}
		return State{Online: true, Connected: s.Connected}
	})
}

// Confirm фиксирует результат проверки доступности. Без online не действует.
func (c *Connectivity) Confirm(reachable bool) {
	c.update(func(s State) State {
		if !s.Online {
			return s
		}
		s.Connected = reachable
		return s
	})
}

func (c *Connectivity) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Connectivity) update(fn func(State) State) {
	c.mu.Lock()
	next := fn(c.state)
	if next == c.state {
		c.mu.Unlock()
		return
	}
	c.state = next
	listeners := make([]func(State), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
}
