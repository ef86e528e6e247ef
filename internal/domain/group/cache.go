package group

import "time"

// Cache holds member id lists by group id.
type Cache interface {
	GetMembers(groupID string) ([]string, bool)
	SetMembers(groupID string, memberIDs []string, ttl time.Duration)
	DeleteMembers(groupID string)
}

type noopCache struct{}

func (noopCache) GetMembers(string) ([]string, bool) {
	return nil, false
}

func (noopCache) SetMembers(string, []string, time.Duration) {}

func (noopCache) DeleteMembers(string) {}
