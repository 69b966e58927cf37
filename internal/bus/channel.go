package bus

// ChannelType names the transport a message arrived on or is routed to.
type ChannelType string

const (
	ChannelWeb    ChannelType = "web"
	ChannelCLI    ChannelType = "cli"
	ChannelSystem ChannelType = "system"
)

// Metadata keys understood by channels. Keys starting with "_" are internal
// and never shown to the customer as text.
const (
	MetaProgress     = "_progress"      // bool: intermediate agent output
	MetaProducts     = "_products"      // []catalog.Selection: product cards to render
	MetaTurnComplete = "_turn_complete" // bool: the agent finished this turn
)
