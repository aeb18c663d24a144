package enum

type Pipeline string

const (
	PipelineAccountsPayable Pipeline = "accounts_payable"
	PipelineDrafting        Pipeline = "drafting"
	PipelineTender          Pipeline = "tender"
)

func (p Pipeline) String() string {
	return string(p)
}

func DecodePipeline(s string) Pipeline {
	switch s {
	case "accounts_payable", "ap":
		return PipelineAccountsPayable
	case "drafting":
		return PipelineDrafting
	case "tender":
		return PipelineTender
	default:
		return ""
	}
}
