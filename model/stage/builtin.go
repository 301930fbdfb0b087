package stage

// Canonical stage identifiers shared by the built-in registries.
const (
	Research = "research"
	Draft    = "draft"
	Finalize = "finalize"
)

// Built-in domains understood by the workflow server.
const (
	DomainLegalAid   = "legal_ai"
	DomainComparison = "product_comparison"
)

// LegalAid returns the registry for the legal-aid petition pipeline: research
// and draft both gate on human approval, finalize does not.
func LegalAid() *Registry {
	r, _ := New(DomainLegalAid,
		Descriptor{ID: Research, Name: "Legal Research", RequiresApproval: true, Op: OpStart},
		Descriptor{ID: Draft, Name: "Petition Draft", RequiresApproval: true, Op: OpAdvance},
		Descriptor{ID: Finalize, Name: "Final Document", Op: OpFinalize},
	)
	return r
}

// Comparison returns the registry for the generic two-item compare flow.  It
// shares the legal-aid shape and wire contract; only the domain differs.
func Comparison() *Registry {
	r, _ := New(DomainComparison,
		Descriptor{ID: Research, Name: "Criteria Research", RequiresApproval: true, Op: OpStart},
		Descriptor{ID: Draft, Name: "Comparison Draft", RequiresApproval: true, Op: OpAdvance},
		Descriptor{ID: Finalize, Name: "Final Comparison", Op: OpFinalize},
	)
	return r
}
