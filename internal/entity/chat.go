package entity

import (
	"fmt"
	"time"
)

// Author tags who wrote a chat entry.
type Author string

const (
	AuthorAdversary Author = "ADVERSARY"
	AuthorYou       Author = "YOU"
	AuthorSystem    Author = "SYSTEM"
)

type ChatEntry struct {
	Content   string `json:"content"`
	Author    Author `json:"author"`
	CreatedAt int64  `json:"created_at"`
}

func NewChatEntry(content string, author Author) ChatEntry {
	return ChatEntry{
		Content:   content,
		Author:    author,
		CreatedAt: time.Now().UTC().Unix(),
	}
}

func systemEntry(format string, args ...any) ChatEntry {
	return NewChatEntry(fmt.Sprintf(format, args...), AuthorSystem)
}

func ChatConnectedTo(conn Connection) ChatEntry {
	return systemEntry("Connected to %s", conn)
}

func ChatAcceptingConnections(port int) ChatEntry {
	return systemEntry("Accepting connections on port %d", port)
}

func ChatSurrender() ChatEntry {
	return systemEntry("You surrendered...")
}

func ChatAdversarySurrender() ChatEntry {
	return systemEntry("Your adversary surrendered the match.")
}

func ChatVictory() ChatEntry {
	return systemEntry("You won!")
}

func ChatDefeat() ChatEntry {
	return systemEntry("You lost the game...")
}

func ChatReset() ChatEntry {
	return systemEntry("The game was restarted!")
}

func ChatAdversaryReset() ChatEntry {
	return systemEntry("Your adversary restarted the match.")
}

func ChatDisconnected(conn Connection) ChatEntry {
	return systemEntry("Disconnected from %s", conn)
}

func ChatError(err error) ChatEntry {
	return systemEntry("An error occurred: %v", err)
}
