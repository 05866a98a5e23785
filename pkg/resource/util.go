package resource

import "time"

// TimestampHook stamps createdAt and updatedAt on create payloads and
// updatedAt only on update payloads. Register it as a before hook.
func TimestampHook(hc *Context) error {
	if hc.Data == nil {
		return nil
	}
	now := time.Now()
	if hc.Operation == OpCreate {
		hc.Data["createdAt"] = now
	}
	hc.Data["updatedAt"] = now
	return nil
}

// OwnerHook injects the current user's id into create payloads so
// ownership-based permission predicates can match on it later.
func OwnerHook(hc *Context) error {
	if hc.Operation != OpCreate || hc.Data == nil || hc.User == nil {
		return nil
	}
	if _, set := hc.Data["userId"]; !set {
		hc.Data["userId"] = hc.User.ID
	}
	return nil
}
