// internal/clients/membership_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"hinlibs/internal/membership"
)

type MembershipClient struct {
	baseURL string
	http    *http.Client
}

func NewMembershipClient(baseURL string, httpClient *http.Client) *MembershipClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &MembershipClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *MembershipClient) GetUser(ctx context.Context, name string) (*membership.User, error) {
	var user membership.User
	if err := do(ctx, c.http, http.MethodGet, c.baseURL+"/users/"+url.PathEscape(name), nil, http.StatusOK, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *MembershipClient) OpenSession(ctx context.Context, name string) (*membership.Session, error) {
	var session membership.Session
	if err := do(ctx, c.http, http.MethodPost, c.baseURL+"/sessions", map[string]string{"name": name}, http.StatusCreated, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *MembershipClient) CloseSession(ctx context.Context, id uuid.UUID) error {
	return do(ctx, c.http, http.MethodDelete, fmt.Sprintf("%s/sessions/%s", c.baseURL, id), nil, http.StatusNoContent, nil)
}
