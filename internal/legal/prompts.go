// Package legal builds the instruction prompts behind each legal-assistance
// tool. Caller text is embedded verbatim; nothing is escaped or truncated.
package legal

import "fmt"

func RTIPrompt(facts string) string {
	return "You are an expert on Indian RTI (Right to Information) process.\n\n" +
		"FACTS: " + facts + "\n\n" +
		"List relevant Acts/sections, the procedure to file an RTI (portals/forms/fees), " +
		"and provide a short sample RTI application template with placeholders."
}

func DivorcePrompt(facts string) string {
	return "You are an expert on family law & divorce in India.\n\n" +
		"FACTS: " + facts + "\n\n" +
		"List likely legal provisions/sections, procedural steps (mediation, court filings), " +
		"documents required, timelines, and provide a short sample petition template."
}

func ConsumerComplaintPrompt(facts string) string {
	return "You are an expert on consumer protection in India.\n\n" +
		"FACTS: " + facts + "\n\n" +
		"List relevant portions of the Consumer Protection Act, how to approach consumer forums, " +
		"documents to attach, approximate fees, and sample complaint structure."
}

func PropertyDisputePrompt(facts string) string {
	return "You are an expert on property law in India.\n\n" +
		"FACTS: " + facts + "\n\n" +
		"Identify relevant statutes/sections, likely remedies (civil suit, injunction, possession), " +
		"documents to gather, and next-step recommendations."
}

func WorkplaceIssuePrompt(facts string) string {
	return "You are an expert on Indian labour & employment law.\n\n" +
		"FACTS: " + facts + "\n\n" +
		"Identify applicable statutes/sections (payment, termination, POSH if applicable), " +
		"procedural steps, and an action plan (letters, conciliation, complaints)."
}

func FamilyLawPrompt(facts string) string {
	return "You are an expert on family law in India (maintenance, custody, adoption, guardianship).\n\n" +
		"FACTS: " + facts + "\n\n" +
		"List relevant legal provisions, likely steps, documents, and suggested next actions."
}

func CybercrimePrompt(facts string) string {
	return "You are an expert on cybercrime law in India (IT Act, IPC supplements).\n\n" +
		"FACTS: " + facts + "\n\n" +
		"List likely offences and sections, steps for preservation of evidence, how to file a police complaint/FIR, " +
		"and online portals to report cybercrime."
}

// GuideStepsPrompt asks for a practical walkthrough of a case type.
func GuideStepsPrompt(caseType string) string {
	return fmt.Sprintf("You are a legal expert in Indian law. Provide a clear, step-by-step practical guide for a '%s' case. ", caseType) +
		"Include relevant Acts, Sections, and Rules (e.g., RTI Act, 2005; Consumer Protection Act, 2019; Hindu Marriage Act, 1955) " +
		"and explain how it's relevant to the case. Also mention required documents, online portals, fees, and timelines."
}

// DraftLetterPrompt asks for an editable letter with [Name]-style placeholders.
func DraftLetterPrompt(caseType, facts string) string {
	return fmt.Sprintf("Draft a formal, editable legal letter for '%s' based on these facts:\n\n%s\n\n", caseType, facts) +
		"Include placeholders like [Name], [Date], [Recipient]. " +
		"Ensure the draft cites at least one relevant law or section (e.g., Section 6(1) of the RTI Act, 2005)."
}
