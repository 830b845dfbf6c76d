package mapping

// Built-in mapping names.
const (
	Users     = "users"
	Campaigns = "campaigns"
	Tasks     = "tasks"
	VIPLevels = "vip-levels"
)

var defaultMappings = []EndpointMapping{
	{
		Name:                Users,
		SourceEndpoint:      "/api/admin/users",
		DestinationEndpoint: "/api/v1/users",
		Method:              MethodPost,
		IDField:             "_id",
		PaginationStyle:     PaginationPage,
		RequiresTransform:   true,
	},
	{
		Name:                Campaigns,
		SourceEndpoint:      "/api/admin/campaigns",
		DestinationEndpoint: "/api/v1/campaigns/{id}",
		Method:              MethodPut,
		IDField:             "_id",
		PaginationStyle:     PaginationPage,
		RequiresTransform:   true,
	},
	{
		Name:                Tasks,
		SourceEndpoint:      "/api/admin/tasks",
		DestinationEndpoint: "/api/v1/tasks",
		Method:              MethodPost,
		IDField:             "id",
		PaginationStyle:     PaginationCursor,
		RequiresTransform:   true,
	},
	{
		Name:                VIPLevels,
		SourceEndpoint:      "/api/admin/vip-levels",
		DestinationEndpoint: "/api/v1/vip-levels/{id}",
		Method:              MethodPut,
		IDField:             "_id",
		PaginationStyle:     PaginationOffset,
		RequiresTransform:   false,
	},
}

// DefaultRegistry returns the built-in mapping table.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultMappings...)
	if err != nil {
		// The built-in table is static; a failure here is a programming error.
		panic(err)
	}
	return r
}
