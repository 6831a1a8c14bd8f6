// Package conflict решает, чья копия слота побеждает при расхождении.
package conflict

import (
	"context"
	"fmt"
	"time"
)

// Threshold - расхождение меньше этого считается одновременной записью, а не конфликтом.
const Threshold = time.Second

type Policy string

const (
	PolicyNewest Policy = "newest"
	PolicyServer Policy = "server"
	PolicyLocal  Policy = "local"
	PolicyPrompt Policy = "prompt"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyNewest, PolicyServer, PolicyLocal, PolicyPrompt:
		return p, nil
	case "":
		return PolicyNewest, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q", s)
	}
}

// Decision - направление передачи данных по итогам разрешения.
type Decision string

const (
	DecisionNone   Decision = "none"
	DecisionServer Decision = "server"
	DecisionLocal  Decision = "local"
	DecisionSkip   Decision = "skip"
)

type Outcome string

const (
	OutcomeServer  Outcome = "server"
	OutcomeLocal   Outcome = "local"
	OutcomeMerged  Outcome = "merged"
	OutcomeSkipped Outcome = "skipped"
)

type ResolvedBy string

const (
	ResolvedByAuto ResolvedBy = "auto"
	ResolvedByUser ResolvedBy = "user"
)

type Meta struct {
	LastSaved time.Time
	Version   int
	Checksum  string
}

type Conflict struct {
	SlotID int
	Local  Meta
	Remote Meta
}

// Resolution - запись о том, как был разрешен конфликт.
type Resolution struct {
	SlotID          int        `json:"slot_id"`
	LocalLastSaved  time.Time  `json:"local_last_saved"`
	RemoteLastSaved time.Time  `json:"remote_last_saved"`
	Resolution      Outcome    `json:"resolution"`
	ResolvedAt      time.Time  `json:"resolved_at"`
	ResolvedBy      ResolvedBy `json:"resolved_by"`
}

// Prompter спрашивает пользователя. Используется только при PolicyPrompt.
type Prompter func(ctx context.Context, c Conflict) (Decision, error)

type Resolver struct {
	now func() time.Time
}

func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// Resolve возвращает решение и запись о разрешении. Если конфликта нет,
// возвращается DecisionNone и nil.
func (r *Resolver) Resolve(ctx context.Context, slot int, local, remote Meta, policy Policy, prompt Prompter) (Decision, *Resolution, error) {
	diff := local.LastSaved.Sub(remote.LastSaved)
	if diff.Abs() < Threshold {
		return DecisionNone, nil, nil
	}

	by := ResolvedByAuto
	var decision Decision

	switch policy {
	case PolicyServer:
		decision = DecisionServer
	case PolicyLocal:
		decision = DecisionLocal
	case PolicyPrompt:
		if prompt == nil {
			decision = DecisionSkip
			break
		}
		d, err := prompt(ctx, Conflict{SlotID: slot, Local: local, Remote: remote})
		if err != nil {
			return DecisionNone, nil, fmt.Errorf("conflict prompt for slot %d: %w", slot, err)
		}
		by = ResolvedByUser
		switch d {
		case DecisionServer, DecisionLocal:
			decision = d
		default:
			decision = DecisionSkip
		}
	default:
		if diff > 0 {
			decision = DecisionLocal
		} else {
			decision = DecisionServer
		}
	}

	return decision, &Resolution{
		SlotID:          slot,
		LocalLastSaved:  local.LastSaved,
		RemoteLastSaved: remote.LastSaved,
		Resolution:      outcomeOf(decision),
		ResolvedAt:      r.now(),
		ResolvedBy:      by,
	}, nil
}

func outcomeOf(d Decision) Outcome {
	switch d {
	case DecisionServer:
		return OutcomeServer
	case DecisionLocal:
		return OutcomeLocal
	default:
		return OutcomeSkipped
	}
}
