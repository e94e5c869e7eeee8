package accounts

import "context"

// StaticDirectory answers unrestricted-account lookups from a fixed list,
// typically loaded from configuration. Real deployments can swap in a
// directory backed by the account service.
type StaticDirectory struct {
	unrestricted map[string]struct{}
}

func NewStaticDirectory(unrestrictedUserIDs []string) *StaticDirectory {
	set := make(map[string]struct{}, len(unrestrictedUserIDs))
	for _, id := range unrestrictedUserIDs {
		set[id] = struct{}{}
	}
	return &StaticDirectory{unrestricted: set}
}

func (d *StaticDirectory) IsUnrestricted(ctx context.Context, userID string) (bool, error) {
	_, ok := d.unrestricted[userID]
	return ok, nil
}
