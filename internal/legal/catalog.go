package legal

// Tool names exposed to MCP callers. These are part of the external
// interface and must not change.
const (
	ToolRTI               = "rti_info"
	ToolDivorce           = "divorce_info"
	ToolConsumerComplaint = "consumer_complaint_info"
	ToolPropertyDispute   = "property_dispute_info"
	ToolWorkplaceIssue    = "workplace_issue_info"
	ToolFamilyLaw         = "family_law_info"
	ToolCybercrime        = "cybercrime_info"
	ToolGuideSteps        = "guide_steps"
	ToolDraftLetter       = "draft_letter"
)

// Parameter names.
const (
	ParamFacts    = "facts"
	ParamCaseType = "case_type"
)

// Param describes one string argument of a prompt tool.
type Param struct {
	Name        string
	Description string
}

// PromptTool maps named string arguments to a single prompt.
type PromptTool struct {
	Name        string
	Description string
	Params      []Param
	Build       func(args map[string]string) string
}

var (
	factsParam = Param{
		Name:        ParamFacts,
		Description: "Free-text facts of the legal situation.",
	}
	caseTypeParam = Param{
		Name:        ParamCaseType,
		Description: "Kind of case, e.g. 'RTI request' or 'consumer complaint'.",
	}
)

func factsTool(name, description string, build func(string) string) PromptTool {
	return PromptTool{
		Name:        name,
		Description: description,
		Params:      []Param{factsParam},
		Build: func(args map[string]string) string {
			return build(args[ParamFacts])
		},
	}
}

// Catalog returns the prompt tools in the order they are published.
func Catalog() []PromptTool {
	return []PromptTool{
		factsTool(ToolRTI,
			"Right to Information: relevant sections, filing procedure and a sample application.",
			RTIPrompt),
		factsTool(ToolDivorce,
			"Divorce in India: provisions, procedure, documents, timelines and a sample petition.",
			DivorcePrompt),
		factsTool(ToolConsumerComplaint,
			"Consumer protection: forums, documents, fees and complaint structure.",
			ConsumerComplaintPrompt),
		factsTool(ToolPropertyDispute,
			"Property disputes: statutes, remedies, documents and next steps.",
			PropertyDisputePrompt),
		factsTool(ToolWorkplaceIssue,
			"Labour and employment issues: statutes, procedure and an action plan.",
			WorkplaceIssuePrompt),
		factsTool(ToolFamilyLaw,
			"Family law (maintenance, custody, adoption, guardianship): provisions and next actions.",
			FamilyLawPrompt),
		factsTool(ToolCybercrime,
			"Cybercrime: offences, evidence preservation, FIR filing and reporting portals.",
			CybercrimePrompt),
		{
			Name:        ToolGuideSteps,
			Description: "Provide step-by-step practical instructions for a case type in India with law references.",
			Params:      []Param{caseTypeParam},
			Build: func(args map[string]string) string {
				return GuideStepsPrompt(args[ParamCaseType])
			},
		},
		{
			Name:        ToolDraftLetter,
			Description: "Return a ready-to-use letter template (RTI, complaint, notice) citing relevant Acts/Sections.",
			Params:      []Param{caseTypeParam, factsParam},
			Build: func(args map[string]string) string {
				return DraftLetterPrompt(args[ParamCaseType], args[ParamFacts])
			},
		},
	}
}

// Lookup finds a prompt tool by name.
func Lookup(name string) (PromptTool, bool) {
	for _, tool := range Catalog() {
		if tool.Name == name {
			return tool, true
		}
	}
	return PromptTool{}, false
}
