package world

import "dramabot/backend/internal/model"

// Snapshots decouple entities handed to detached persistence goroutines
// and external callers from the live records mutated under the store
// mutex. Shallow copies with cloned slice fields; the caller must hold at
// least a read lock while snapshotting.

func snapshotUser(u *model.User) *model.User {
	cp := *u
	cp.RoleHistory = append([]string(nil), u.RoleHistory...)
	cp.Traits = append([]string(nil), u.Traits...)
	return &cp
}

func snapshotFaction(f *model.Faction) *model.Faction {
	cp := *f
	cp.MemberIDs = append([]string(nil), f.MemberIDs...)
	return &cp
}

func snapshotAlliance(a *model.Alliance) *model.Alliance {
	cp := *a
	return &cp
}
