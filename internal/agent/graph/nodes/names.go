package nodes

// Graph node names. The turn pipeline is strictly linear: extraction always
// precedes prompt assembly, which always precedes generation.
const (
	NodeExtractor       = "Extractor"
	NodePromptAssembler = "PromptAssembler"
	NodeResponseModel   = "ResponseChatModel"
)
