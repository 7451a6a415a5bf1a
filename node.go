package casfa

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// NodeKind discriminates the CAS node union.
type NodeKind uint8

const (
	KindDict NodeKind = iota + 1
	KindFile
	KindSet
	KindSuccessor
)

func (k NodeKind) String() string {
	switch k {
	case KindDict:
		return "dict"
	case KindFile:
		return "file"
	case KindSet:
		return "set"
	case KindSuccessor:
		return "successor"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// MarshalJSON renders the kind as its name.
func (k NodeKind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(k.String())), nil
}

// Node is a decoded CAS node. Exactly one kind's fields are populated.
type Node struct {
	Kind NodeKind

	// Dict children: parallel lists, Names strictly ascending in UTF-8
	// byte order. The stored ordering is what makes the diff merge-join
	// correct.
	Names    []string
	Children []string

	// File and successor blocks. Next chains to the successor block of a
	// large file; the diff engine never expands the chain.
	Content []byte
	Next    string

	// Set members.
	Items []string
}

// DictEntry pairs a child name with its content key.
type DictEntry struct {
	Name string
	Key  string
}

// Object format: "{kind} {payloadSize}\x00{payload}".
// Dict payload entries: {childKey 26B}{nameLen uint16 BE}{name}.
// File and successor payload: {nextLen uint8}{nextKey}{content}.
// Set payload: concatenated 26-byte member keys.
func encodeObject(kind string, payload []byte) (string, []byte) {
	header := fmt.Sprintf("%s %d\x00", kind, len(payload))
	buf := make([]byte, 0, len(header)+len(payload))
	buf = append(buf, header...)
	buf = append(buf, payload...)
	return HashKey(buf), buf
}

// EncodeFile encodes file content, optionally chained to a successor block.
func EncodeFile(content []byte, next string) (key string, encoded []byte, err error) {
	payload, err := encodeBlockPayload(content, next)
	if err != nil {
		return "", nil, err
	}
	key, encoded = encodeObject("file", payload)
	return key, encoded, nil
}

// EncodeSuccessor encodes a continuation block of a large file.
func EncodeSuccessor(content []byte, next string) (key string, encoded []byte, err error) {
	payload, err := encodeBlockPayload(content, next)
	if err != nil {
		return "", nil, err
	}
	key, encoded = encodeObject("succ", payload)
	return key, encoded, nil
}

func encodeBlockPayload(content []byte, next string) ([]byte, error) {
	if next != "" && !ValidKey(next) {
		return nil, fmt.Errorf("encode block: invalid successor key %q", next)
	}
	payload := make([]byte, 0, 1+len(next)+len(content))
	payload = append(payload, byte(len(next)))
	payload = append(payload, next...)
	payload = append(payload, content...)
	return payload, nil
}

// EncodeDict encodes directory entries. Entries are sorted by name in byte
// order before encoding; duplicate names and invalid keys are rejected.
func EncodeDict(entries []DictEntry) (key string, encoded []byte, err error) {
	sorted := make([]DictEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var payload bytes.Buffer
	prev := ""
	for i, entry := range sorted {
		if entry.Name == "" {
			return "", nil, fmt.Errorf("encode dict: empty child name")
		}
		if strings.ContainsRune(entry.Name, '/') {
			return "", nil, fmt.Errorf("encode dict: child name %q contains a separator", entry.Name)
		}
		if i > 0 && entry.Name == prev {
			return "", nil, fmt.Errorf("encode dict: duplicate child name %q", entry.Name)
		}
		if !ValidKey(entry.Key) {
			return "", nil, fmt.Errorf("encode dict: invalid child key %q for %q", entry.Key, entry.Name)
		}
		payload.WriteString(entry.Key)
		binary.Write(&payload, binary.BigEndian, uint16(len(entry.Name)))
		payload.WriteString(entry.Name)
		prev = entry.Name
	}

	key, encoded = encodeObject("dict", payload.Bytes())
	return key, encoded, nil
}

// EncodeSet encodes a set node holding member keys.
func EncodeSet(items []string) (key string, encoded []byte, err error) {
	var payload bytes.Buffer
	for _, item := range items {
		if !ValidKey(item) {
			return "", nil, fmt.Errorf("encode set: invalid member key %q", item)
		}
		payload.WriteString(item)
	}
	key, encoded = encodeObject("set", payload.Bytes())
	return key, encoded, nil
}

// DecodeNode decodes node bytes. Failure is unrecoverable for that node;
// callers translate it into an integrity fault with path and key context.
func DecodeNode(data []byte) (*Node, error) {
	idx := bytes.IndexByte(data, 0)
	if idx == -1 {
		return nil, fmt.Errorf("decode node: missing header terminator")
	}

	header := string(data[:idx])
	payload := data[idx+1:]

	kind, sizeStr, ok := strings.Cut(header, " ")
	if !ok {
		return nil, fmt.Errorf("decode node: malformed header %q", header)
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size != len(payload) {
		return nil, fmt.Errorf("decode node: payload size mismatch in header %q", header)
	}

	switch kind {
	case "dict":
		return decodeDict(payload)
	case "file":
		return decodeBlock(KindFile, payload)
	case "succ":
		return decodeBlock(KindSuccessor, payload)
	case "set":
		return decodeSet(payload)
	}
	return nil, fmt.Errorf("decode node: unknown kind %q", kind)
}

func decodeDict(payload []byte) (*Node, error) {
	node := &Node{Kind: KindDict}
	reader := bytes.NewReader(payload)
	keyBuf := make([]byte, KeyLen)
	prev := ""

	for reader.Len() > 0 {
		if _, err := io.ReadFull(reader, keyBuf); err != nil {
			return nil, fmt.Errorf("decode dict: truncated child key: %w", err)
		}
		var nameLen uint16
		if err := binary.Read(reader, binary.BigEndian, &nameLen); err != nil {
			return nil, fmt.Errorf("decode dict: truncated name length: %w", err)
		}
		nameBuf := make([]byte, nameLen)
		if _, err := io.ReadFull(reader, nameBuf); err != nil {
			return nil, fmt.Errorf("decode dict: truncated name: %w", err)
		}

		name := string(nameBuf)
		if name == "" {
			return nil, fmt.Errorf("decode dict: empty child name")
		}
		if prev != "" && name <= prev {
			return nil, fmt.Errorf("decode dict: child %q breaks the sorted name order", name)
		}
		key := string(keyBuf)
		if !ValidKey(key) {
			return nil, fmt.Errorf("decode dict: invalid child key %q for %q", key, name)
		}

		node.Names = append(node.Names, name)
		node.Children = append(node.Children, key)
		prev = name
	}

	return node, nil
}

func decodeBlock(kind NodeKind, payload []byte) (*Node, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("decode %s: missing successor length", kind)
	}
	nextLen := int(payload[0])
	if nextLen != 0 && nextLen != KeyLen {
		return nil, fmt.Errorf("decode %s: bad successor length %d", kind, nextLen)
	}
	if len(payload) < 1+nextLen {
		return nil, fmt.Errorf("decode %s: truncated successor key", kind)
	}

	node := &Node{Kind: kind, Next: string(payload[1 : 1+nextLen])}
	if node.Next != "" && !ValidKey(node.Next) {
		return nil, fmt.Errorf("decode %s: invalid successor key %q", kind, node.Next)
	}
	node.Content = payload[1+nextLen:]
	return node, nil
}

func decodeSet(payload []byte) (*Node, error) {
	if len(payload)%KeyLen != 0 {
		return nil, fmt.Errorf("decode set: payload is not a whole number of keys")
	}
	node := &Node{Kind: KindSet}
	for off := 0; off < len(payload); off += KeyLen {
		key := string(payload[off : off+KeyLen])
		if !ValidKey(key) {
			return nil, fmt.Errorf("decode set: invalid member key %q", key)
		}
		node.Items = append(node.Items, key)
	}
	return node, nil
}

// WellKnown maps canonical node keys to their encodings, resolvable without
// a storage round trip. The registry is injected rather than global so
// alternate canonical sets can be substituted.
type WellKnown map[string][]byte

var emptyDictKey, emptyDictData = func() (string, []byte) {
	key, data, err := EncodeDict(nil)
	if err != nil {
		panic(err)
	}
	return key, data
}()

// EmptyDictKey returns the key of the canonical empty directory.
func EmptyDictKey() string { return emptyDictKey }

// DefaultWellKnown returns a registry holding the canonical empty directory.
func DefaultWellKnown() WellKnown {
	return WellKnown{emptyDictKey: emptyDictData}
}

// PutFile encodes content as a single file node and stores it.
func PutFile(ctx context.Context, s Store, content []byte) (string, error) {
	key, encoded, err := EncodeFile(content, "")
	if err != nil {
		return "", err
	}
	if err := s.Put(ctx, key, encoded); err != nil {
		return "", err
	}
	return key, nil
}

// PutDict encodes entries (name to child key) as a dict node and stores it.
func PutDict(ctx context.Context, s Store, entries map[string]string) (string, error) {
	list := make([]DictEntry, 0, len(entries))
	for name, key := range entries {
		list = append(list, DictEntry{Name: name, Key: key})
	}
	key, encoded, err := EncodeDict(list)
	if err != nil {
		return "", err
	}
	if err := s.Put(ctx, key, encoded); err != nil {
		return "", err
	}
	return key, nil
}
