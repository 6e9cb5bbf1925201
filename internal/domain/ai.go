package domain

// AIReply is the result of a successful AI command: either ChatReply or DesignReply.
type AIReply interface {
	isAIReply()
}

// ChatReply is a plain text answer to be posted in the room chat.
type ChatReply struct {
	Text string
}

// DesignReply replaces the whole canvas of the room.
type DesignReply struct {
	Graph Graph
}

func (ChatReply) isAIReply()   {}
func (DesignReply) isAIReply() {}
