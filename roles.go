package gatekeeper

// Default capability names. Hosts may register their own list instead.
const (
	PermContentRead         = "content.read"
	PermContentCreate       = "content.create"
	PermContentEdit         = "content.edit"
	PermContentDelete       = "content.delete"
	PermContentPublish      = "content.publish"
	PermMediaUpload         = "media.upload"
	PermUsersManage         = "users.manage"
	PermAnalyticsView       = "analytics.view"
	PermSubscriptionsManage = "subscriptions.manage"
)

// DefaultPermissions returns the built-in capability list in bit order.
func DefaultPermissions() []string {
	return []string{
		PermContentRead,
		PermContentCreate,
		PermContentEdit,
		PermContentDelete,
		PermContentPublish,
		PermMediaUpload,
		PermUsersManage,
		PermAnalyticsView,
		PermSubscriptionsManage,
	}
}

// DefaultRoles maps the built-in roles to their default capabilities.
func DefaultRoles() map[string][]string {
	return map[string][]string{
		RoleAdmin: DefaultPermissions(),
		RoleEditor: {
			PermContentRead, PermContentCreate, PermContentEdit, PermContentPublish, PermMediaUpload,
		},
		RoleManager: {
			PermContentRead, PermContentEdit, PermAnalyticsView, PermSubscriptionsManage,
		},
		RoleUser: {
			PermContentRead,
		},
	}
}
