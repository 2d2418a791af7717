package energy

// DefaultCostKey is the cost-table key used for tools with no entry of
// their own. It is never zero: unregistered tools default to expensive.
const DefaultCostKey = "default"

// CostEntry classifies a tool by situational impact, not computational
// expense. Externally visible actions are the most expensive tier because
// they are the least reversible.
type CostEntry struct {
	Cost     float64
	ReadOnly bool
}

// defaultCosts is the built-in cost table. Tiers:
//
//	0.5      read-only observation
//	1.0      search and queries
//	1.0–2.0  creation and drafting
//	2.0–3.0  destructive or modifying operations
//	3.0–5.0  shell execution and delegated sub-agents
//	4.0–8.0  visible to other humans
var defaultCosts = map[string]CostEntry{
	// Observation.
	"read_file":    {Cost: 0.5, ReadOnly: true},
	"list_files":   {Cost: 0.5, ReadOnly: true},
	"git_status":   {Cost: 0.5, ReadOnly: true},
	"git_log":      {Cost: 0.5, ReadOnly: true},
	"git_diff":     {Cost: 0.5, ReadOnly: true},
	"memory_read":  {Cost: 0.5, ReadOnly: true},
	"browser_read": {Cost: 0.5, ReadOnly: true},

	// Search and queries.
	"search_files":  {Cost: 1.0, ReadOnly: true},
	"grep":          {Cost: 1.0, ReadOnly: true},
	"web_search":    {Cost: 1.0, ReadOnly: true},
	"memory_search": {Cost: 1.0, ReadOnly: true},
	"issue_list":    {Cost: 1.0, ReadOnly: true},
	"pr_list":       {Cost: 1.0, ReadOnly: true},

	// Creation and drafting.
	"write_file":   {Cost: 2.0},
	"memory_write": {Cost: 1.0},
	"git_branch":   {Cost: 1.0},
	"draft_text":   {Cost: 1.0},

	// Destructive or modifying.
	"edit_file":   {Cost: 2.0},
	"delete_file": {Cost: 3.0},
	"git_commit":  {Cost: 2.0},
	"git_push":    {Cost: 3.0},
	"browser_act": {Cost: 3.0},

	// Shell execution and delegation.
	"execute_command": {Cost: 4.0},
	"code_agent":      {Cost: 5.0},

	// Externally visible to other humans.
	"issue_update":    {Cost: 4.0},
	"issue_create":    {Cost: 5.0},
	"pr_comment":      {Cost: 6.0},
	"pr_create":       {Cost: 7.0},
	"pr_review":       {Cost: 8.0},
	"send_message":    {Cost: 6.0},

	DefaultCostKey: {Cost: 5.0},
}

// costTable merges the built-in table with config overrides.
func costTable(overrides map[string]float64) map[string]CostEntry {
	table := make(map[string]CostEntry, len(defaultCosts)+len(overrides))
	for name, entry := range defaultCosts {
		table[name] = entry
	}
	for name, cost := range overrides {
		entry := table[name]
		entry.Cost = cost
		table[name] = entry
	}
	return table
}
