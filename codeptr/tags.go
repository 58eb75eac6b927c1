package codeptr

import "fmt"

// Tag distinguishes the kinds of code an entrypoint may point at. Tags only
// use bits 48..63.
type Tag uint64

const tagShift = 48

const (
	DefaultTag                   Tag = 0
	JSEntrypointTag                  = DefaultTag
	WasmEntrypointTag            Tag = 1 << tagShift
	BytecodeHandlerEntrypointTag Tag = 2 << tagShift
	LoadICEntrypointTag          Tag = 3 << tagShift
	StoreICEntrypointTag         Tag = 4 << tagShift
	RegExpEntrypointTag          Tag = 5 << tagShift
)

var tagNames = map[Tag]string{
	DefaultTag:                   "js",
	WasmEntrypointTag:            "wasm",
	BytecodeHandlerEntrypointTag: "bytecode-handler",
	LoadICEntrypointTag:          "load-ic",
	StoreICEntrypointTag:         "store-ic",
	RegExpEntrypointTag:          "regexp",
}

// Tags lists the known tags in ascending order.
func Tags() []Tag {
	return []Tag{
		DefaultTag,
		WasmEntrypointTag,
		BytecodeHandlerEntrypointTag,
		LoadICEntrypointTag,
		StoreICEntrypointTag,
		RegExpEntrypointTag,
	}
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%#x)", uint64(t))
}

// ParseTag maps a tag name back to its Tag.
func ParseTag(name string) (Tag, bool) {
	for tag, n := range tagNames {
		if n == name {
			return tag, true
		}
	}
	return 0, false
}
