package rbac

// Default policy. "company" is a supplier user answering its own
// evaluations; "evaluator" runs audits and reviews answers.
var RolePermissions = map[string][]string{
	"company": {
		"evaluation:view-own",
		"answer:respond",
		"answer:view-own",
		"actionplan:respond",
		"actionplan:view-own",
		"rem:submit",
		"rem:view-own",
	},
	"evaluator": {
		"catalog:*",
		"company:list",
		"evaluation:*",
		"answer:*",
		"actionplan:*",
		"rem:view-all",
	},
	"admin": {
		"*", // everything
	},
}
