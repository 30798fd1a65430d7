package credits

// Per-action credit costs. These are catalog lookups with a
// caller-supplied default when the catalog has no entry.

var modelCosts = map[string]int64{
	"smart": 5,
	"fast":  2,
	"cheap": 1,
	"local": 0,
}

var skillCosts = map[string]int64{
	"web_search":     2,
	"send_email":     3,
	"calendar_read":  1,
	"calendar_write": 2,
	"crm_lookup":     2,
}

var mediaCosts = map[string]int64{
	"generate_image": 10,
	"generate_video": 50,
	"generate_3d":    25,
}

// ModelCost returns the per-iteration cost for a logical model.
func ModelCost(modelID string, def int64) int64 {
	if c, ok := modelCosts[modelID]; ok {
		return c
	}
	return def
}

// SkillCost returns the per-invocation cost for a skill tool.
func SkillCost(toolName string, def int64) int64 {
	if c, ok := skillCosts[toolName]; ok {
		return c
	}
	return def
}

// MediaCost returns the per-generation cost for a media tool.
func MediaCost(toolName string, def int64) int64 {
	if c, ok := mediaCosts[toolName]; ok {
		return c
	}
	return def
}
