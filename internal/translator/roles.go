package translator

import "ocigenai-gateway/internal/models"

// Role tables per API format. A role missing from a table is unsupported for that format.
var genericRoles = map[string]string{
	models.RoleSystem:    models.OCIRoleSystem,
	models.RoleDeveloper: models.OCIRoleSystem,
	models.RoleUser:      models.OCIRoleUser,
	models.RoleAssistant: models.OCIRoleAssistant,
	models.RoleTool:      models.OCIRoleTool,
}

var cohereRoles = map[string]string{
	models.RoleSystem:    models.OCIRoleSystem,
	models.RoleDeveloper: models.OCIRoleSystem,
	models.RoleUser:      models.OCIRoleUser,
	models.RoleAssistant: models.CohereRoleChatbot,
	models.RoleTool:      models.OCIRoleTool,
}

// upstreamRoles maps OCI roles in replies back to OpenAI roles.
var upstreamRoles = map[string]string{
	models.OCIRoleSystem:     models.RoleSystem,
	models.OCIRoleUser:       models.RoleUser,
	models.OCIRoleAssistant:  models.RoleAssistant,
	models.CohereRoleChatbot: models.RoleAssistant,
	models.OCIRoleTool:       models.RoleTool,
}

// DownstreamRole maps an OCI role to its OpenAI name; replies without a role are assistant turns.
func DownstreamRole(ociRole string) string {
	if r, ok := upstreamRoles[ociRole]; ok {
		return r
	}
	return models.RoleAssistant
}
