// ident/ident.go
package ident

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// 房间码字符集：大写字母加数字，方便玩家口头传达
const roomCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const roomCodeLength = 6

// NewRoomCode generates a short join code such as "7KQ2ZD".
// Uniqueness among live rooms is the registry's job; this only
// provides enough entropy that retries are never observed in practice.
func NewRoomCode() string {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in a far worse state
		// than a duplicate room code.
		panic("ident: crypto/rand unavailable: " + err.Error())
	}

	code := make([]byte, roomCodeLength)
	for i, b := range buf {
		code[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(code)
}

// NewPlayerID returns an opaque player identifier.
func NewPlayerID() string {
	return uuid.New().String()
}
