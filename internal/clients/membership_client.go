package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"libralend/internal/membership"
)

// MembershipClient talks to the member directory.
type MembershipClient struct {
	base
}

func NewMembershipClient(baseURL string, opts ...Option) *MembershipClient {
	return &MembershipClient{base: newBase("membership", baseURL, opts)}
}

func (c *MembershipClient) GetMember(ctx context.Context, id string) (*membership.Member, error) {
	resp, err := c.do(ctx, "GetMember", http.MethodGet, "/members/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	switch resp.status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w", ErrNotFound, membership.ErrMemberNotFound)
	default:
		return nil, unexpected(resp.status)
	}

	var member membership.Member
	if err := resp.decode(&member); err != nil {
		return nil, err
	}
	return &member, nil
}

// Exists checks membership with a HEAD request.
func (c *MembershipClient) Exists(ctx context.Context, id string) (bool, error) {
	resp, err := c.do(ctx, "Exists", http.MethodHead, "/members/"+url.PathEscape(id), nil)
	if err != nil {
		return false, err
	}

	switch resp.status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, unexpected(resp.status)
	}
}
