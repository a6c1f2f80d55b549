package auth

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aqt/aqt-connector/pkg/aqtctl/errdefs"
)

type memoryStore struct {
	token   string
	found   bool
	loadErr error
	saves   int
	deletes int
}

func (m *memoryStore) Save(token string) error {
	m.saves++
	m.token = token
	m.found = true
	return nil
}

func (m *memoryStore) Load() (string, bool, error) {
	if m.loadErr != nil {
		return "", false, m.loadErr
	}
	return m.token, m.found, nil
}

func (m *memoryStore) Delete() error {
	m.deletes++
	m.token = ""
	m.found = false
	return nil
}

// allowVerifier accepts exactly the tokens in valid; nil accepts everything.
type allowVerifier struct {
	valid map[string]bool
	calls []string
}

func (v *allowVerifier) Verify(_ context.Context, token string) error {
	v.calls = append(v.calls, token)
	if v.valid == nil || v.valid[token] {
		return nil
	}
	return fmt.Errorf("%w: rejected %s", errdefs.ErrTokenValidation, token)
}

type fakeAuthenticator struct {
	deviceTokens  *OfflineAccessTokens
	deviceErr     error
	ccToken       string
	ccErr         error
	refreshTokens *OfflineAccessTokens
	refreshErr    error

	deviceCalls  int
	ccCalls      []ClientCredentials
	refreshCalls []string
}

func (f *fakeAuthenticator) AuthenticateDevice(_ context.Context, out io.Writer) (*OfflineAccessTokens, error) {
	f.deviceCalls++
	_, _ = io.WriteString(out, "device flow\n")
	return f.deviceTokens, f.deviceErr
}

func (f *fakeAuthenticator) AuthenticateWithClientCredentials(_ context.Context, creds ClientCredentials) (string, error) {
	f.ccCalls = append(f.ccCalls, creds)
	return f.ccToken, f.ccErr
}

func (f *fakeAuthenticator) RefreshAccessToken(_ context.Context, refreshToken string) (*OfflineAccessTokens, error) {
	f.refreshCalls = append(f.refreshCalls, refreshToken)
	return f.refreshTokens, f.refreshErr
}

// scriptedProvider answers device token polls from a script. A nil entry
// means authorization pending.
type scriptedProvider struct {
	code       DeviceCode
	codeErr    error
	polls      []pollAnswer
	pollCount  int
	ccToken    string
	ccErr      error
	refreshed  *OfflineAccessTokens
	refreshErr error
}

type pollAnswer struct {
	tokens *OfflineAccessTokens
	err    error
}

func (p *scriptedProvider) FetchDeviceCode(context.Context) (*DeviceCode, error) {
	if p.codeErr != nil {
		return nil, p.codeErr
	}
	code := p.code
	return &code, nil
}

func (p *scriptedProvider) FetchTokenWithDeviceCode(_ context.Context, deviceCode string) (*OfflineAccessTokens, error) {
	if deviceCode != p.code.DeviceCode {
		return nil, errors.New("unexpected device code")
	}
	if p.pollCount >= len(p.polls) {
		return nil, errors.New("poll script exhausted")
	}
	answer := p.polls[p.pollCount]
	p.pollCount++
	return answer.tokens, answer.err
}

func (p *scriptedProvider) FetchTokenWithClientCredentials(context.Context, ClientCredentials) (string, error) {
	return p.ccToken, p.ccErr
}

func (p *scriptedProvider) RefreshAccessToken(context.Context, string) (*OfflineAccessTokens, error) {
	return p.refreshed, p.refreshErr
}
