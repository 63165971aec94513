package permission

import (
	"errors"
	"sort"
	"sync"
)

// RoleManager holds the default capability mask of every configured role.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Mask64
	frozen bool
}

// NewRoleManager returns a RoleManager resolving names against registry.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Mask64),
	}
}

// RegisterRole records the default capabilities of roleName.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}
	if roleName == "" {
		return errors.New("role name empty")
	}
	if _, exists := rm.roles[roleName]; exists {
		return errors.New("role already registered")
	}

	mask, err := rm.registry.MaskOf(permissionNames)
	if err != nil {
		return err
	}

	rm.roles[roleName] = mask
	return nil
}

// GetMask returns the default mask for roleName.
func (rm *RoleManager) GetMask(roleName string) (Mask64, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	mask, ok := rm.roles[roleName]
	return mask, ok
}

// Has reports whether roleName is registered.
func (rm *RoleManager) Has(roleName string) bool {
	_, ok := rm.GetMask(roleName)
	return ok
}

// Permissions returns the default capability names of roleName.
func (rm *RoleManager) Permissions(roleName string) ([]string, bool) {
	mask, ok := rm.GetMask(roleName)
	if !ok {
		return nil, false
	}
	return rm.registry.Names(mask), true
}

// Roles lists registered role names in sorted order.
func (rm *RoleManager) Roles() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	out := make([]string, 0, len(rm.roles))
	for name := range rm.roles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Freeze prevents further registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of registered roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
