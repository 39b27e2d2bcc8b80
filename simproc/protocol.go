// Package simproc connects the traversal engine to game simulators that
// run as separate processes, speaking a line-delimited JSON protocol over
// the simulator's stdin and stdout.
//
// Each request is one JSON object with a "cmd" field:
//
//	{"cmd":"start","seed":N}
//	{"cmd":"turn"}
//	{"cmd":"action","player":P,"action":I,"kind":"decision","state":"..."}
//	{"cmd":"infoset","player":P}
//	{"cmd":"reseed","seed":N}
//	{"cmd":"quit"}
//
// and is answered by exactly one JSON object. Failed requests are answered
// with {"error":"..."}. A turn is answered with the acting player and
// either "wait":true, a "win" payoff, or the offered "actions".
package simproc

import (
	cfr "github.com/timpalpant/go-simcfr"
)

const (
	cmdStart   = "start"
	cmdTurn    = "turn"
	cmdAction  = "action"
	cmdInfoSet = "infoset"
	cmdReseed  = "reseed"
	cmdQuit    = "quit"
)

type request struct {
	Cmd    string `json:"cmd"`
	Seed   int64  `json:"seed,omitempty"`
	Player int    `json:"player,omitempty"`
	Action int    `json:"action,omitempty"`
	Kind   string `json:"kind,omitempty"`
	State  []byte `json:"state,omitempty"`
}

type response struct {
	Error   string       `json:"error,omitempty"`
	Player  int          `json:"player"`
	Wait    bool         `json:"wait,omitempty"`
	Win     *float64     `json:"win,omitempty"`
	State   []byte       `json:"state,omitempty"`
	Actions []cfr.Action `json:"actions,omitempty"`
	InfoSet []string     `json:"infoset,omitempty"`
}

func encodeTurn(turn cfr.Turn) response {
	resp := response{Player: turn.Player}
	switch turn.Request.Kind {
	case cfr.Waiting:
		resp.Wait = true
	case cfr.Win:
		payoff := turn.Request.Payoff
		resp.Win = &payoff
	default:
		resp.State = turn.Request.State
		resp.Actions = turn.Actions
	}

	return resp
}

func decodeTurn(resp response) cfr.Turn {
	turn := cfr.Turn{Player: resp.Player}
	switch {
	case resp.Win != nil:
		turn.Request = cfr.Request{Kind: cfr.Win, Payoff: *resp.Win}
	case resp.Wait:
		turn.Request = cfr.Request{Kind: cfr.Waiting}
	default:
		turn.Request = cfr.Request{Kind: cfr.Decision, State: resp.State}
		turn.Actions = resp.Actions
	}

	return turn
}

func parseKind(s string) cfr.RequestKind {
	switch s {
	case cfr.Waiting.String():
		return cfr.Waiting
	case cfr.Win.String():
		return cfr.Win
	}

	return cfr.Decision
}
