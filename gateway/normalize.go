package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/MrEthical07/portalAuth/session"
)

// envelope is the union of reply shapes seen from identity providers.
type envelope struct {
	Success     *bool           `json:"success"`
	Message     string          `json:"message"`
	Error       string          `json:"error"`
	Data        json.RawMessage `json:"data"`
	Result      json.RawMessage `json:"result"`
	User        json.RawMessage `json:"user"`
	Token       string          `json:"token"`
	AccessToken string          `json:"accessToken"`
	AccessSnake string          `json:"access_token"`
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func (e envelope) token() string {
	for _, t := range []string{e.Token, e.AccessToken, e.AccessSnake} {
		if strings.TrimSpace(t) != "" {
			return t
		}
	}
	return ""
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return env, errors.New("empty body")
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, err
	}
	return env, nil
}

// wrapped is a container that nests the user next to its token.
type wrapped struct {
	User        json.RawMessage `json:"user"`
	Token       string          `json:"token"`
	AccessToken string          `json:"accessToken"`
	AccessSnake string          `json:"access_token"`
}

// normalizeLogin picks the user record and bearer out of a success reply.
func normalizeLogin(env envelope) (*session.User, string) {
	token := env.token()

	container := firstPresent(env.Data, env.Result, env.User)
	if container == nil {
		return nil, token
	}

	userRaw := container
	var w wrapped
	if err := json.Unmarshal(container, &w); err == nil && isPresent(w.User) {
		userRaw = w.User
		if token == "" {
			token = envelope{Token: w.Token, AccessToken: w.AccessToken, AccessSnake: w.AccessSnake}.token()
		}
	}

	var u session.User
	if err := json.Unmarshal(userRaw, &u); err != nil {
		return nil, token
	}
	if u.Validate() != nil {
		return nil, token
	}
	return &u, token
}

func firstPresent(candidates ...json.RawMessage) json.RawMessage {
	for _, c := range candidates {
		if isPresent(c) {
			return c
		}
	}
	return nil
}

func isPresent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}
