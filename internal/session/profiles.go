package session

import (
	"context"
	"fmt"
)

// Profile is the public identity attached to a session.
type Profile struct {
	FID            string `json:"fid"`
	Username       string `json:"username"`
	DisplayName    string `json:"displayName"`
	PfpURL         string `json:"pfpUrl"`
	FollowerCount  int    `json:"followerCount"`
	FollowingCount int    `json:"followingCount"`
}

// ProfileProvider verifies identities and looks up profiles.
type ProfileProvider interface {
	Verify(ctx context.Context, fid, signature string) (bool, error)
	Profile(ctx context.Context, fid string) (Profile, error)
}

// DemoProfiles accepts every identity and fabricates a profile for it.
// It performs no signature verification.
type DemoProfiles struct{}

var _ ProfileProvider = DemoProfiles{}

func (DemoProfiles) Verify(ctx context.Context, fid, signature string) (bool, error) {
	return fid != "", ctx.Err()
}

func (DemoProfiles) Profile(ctx context.Context, fid string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	return Profile{
		FID:            fid,
		Username:       "user" + fid,
		DisplayName:    fmt.Sprintf("Demo User %s", fid),
		PfpURL:         "https://via.placeholder.com/150",
		FollowerCount:  100,
		FollowingCount: 50,
	}, nil
}
