package extptr

import "fmt"

// Tag is an external pointer type tag, n<<48 with n in 1..0x3fff.
type Tag uint64

const (
	tagShift = 48
	tagBits  = uint64(0x3fff) << tagShift
)

const (
	ForeignTag                Tag = 1 << tagShift
	ArrayBufferTag            Tag = 2 << tagShift
	ExternalStringTag         Tag = 3 << tagShift
	WasmInstanceTag           Tag = 4 << tagShift
	AccessorGetterTag         Tag = 5 << tagShift
	CallHandlerCallbackTag    Tag = 6 << tagShift
	NativeContextMicrotaskTag Tag = 7 << tagShift
)

var tagNames = map[Tag]string{
	ForeignTag:                "foreign",
	ArrayBufferTag:            "array-buffer",
	ExternalStringTag:         "external-string",
	WasmInstanceTag:           "wasm-instance",
	AccessorGetterTag:         "accessor-getter",
	CallHandlerCallbackTag:    "call-handler-callback",
	NativeContextMicrotaskTag: "microtask-queue",
}

// Tags lists the known tags in ascending order.
func Tags() []Tag {
	return []Tag{
		ForeignTag,
		ArrayBufferTag,
		ExternalStringTag,
		WasmInstanceTag,
		AccessorGetterTag,
		CallHandlerCallbackTag,
		NativeContextMicrotaskTag,
	}
}

// Valid reports whether t only uses tag bits and is not zero.
func (t Tag) Valid() bool {
	return t != 0 && uint64(t)&^tagBits == 0
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%#x)", uint64(t)>>tagShift)
}
