// internal/clients/membership_client.go
package clients

import (
	"context"
	"net/http"
	"net/url"

	"libralend/internal/circulation"
	"libralend/internal/membership"
)

func (c *Client) RegisterMember(ctx context.Context, req membership.RegisterRequest) (*membership.Member, error) {
	var member membership.Member
	if err := c.do(ctx, http.MethodPost, "/members", nil, req, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *Client) GetMember(ctx context.Context, id string) (*membership.Member, error) {
	var member membership.Member
	if err := c.do(ctx, http.MethodGet, "/members/"+url.PathEscape(id), nil, nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *Client) ListMembers(ctx context.Context) ([]membership.Member, error) {
	var members []membership.Member
	if err := c.do(ctx, http.MethodGet, "/members", nil, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *Client) SetAccountStatus(ctx context.Context, id string, status membership.AccountStatus) (*membership.Member, error) {
	var member membership.Member
	body := circulation.StatusRequest{Status: status}
	if err := c.do(ctx, http.MethodPut, "/members/"+url.PathEscape(id)+"/status", nil, body, &member); err != nil {
		return nil, err
	}
	return &member, nil
}
