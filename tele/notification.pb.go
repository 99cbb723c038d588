// Go bindings for notification.proto, golang/protobuf struct tag style.
// Keep tags in sync with notification.proto.

package tele

import (
	fmt "fmt"

	proto "github.com/golang/protobuf/proto"
)

type Kind int32

const (
	Kind_Invalid            Kind = 0
	Kind_LeftButtonPress    Kind = 1
	Kind_RightButtonPress   Kind = 2
	Kind_LeftButtonRelease  Kind = 3
	Kind_RightButtonRelease Kind = 4
	Kind_MouseMove          Kind = 5
	Kind_MouseDrag          Kind = 6
	Kind_KeyPress           Kind = 7
	Kind_KeyRelease         Kind = 8
	Kind_EscapePressed      Kind = 9
)

var Kind_name = map[int32]string{
	0: "Invalid",
	1: "LeftButtonPress",
	2: "RightButtonPress",
	3: "LeftButtonRelease",
	4: "RightButtonRelease",
	5: "MouseMove",
	6: "MouseDrag",
	7: "KeyPress",
	8: "KeyRelease",
	9: "EscapePressed",
}

var Kind_value = map[string]int32{
	"Invalid":            0,
	"LeftButtonPress":    1,
	"RightButtonPress":   2,
	"LeftButtonRelease":  3,
	"RightButtonRelease": 4,
	"MouseMove":          5,
	"MouseDrag":          6,
	"KeyPress":           7,
	"KeyRelease":         8,
	"EscapePressed":      9,
}

func (x Kind) String() string {
	if s, ok := Kind_name[int32(x)]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int32(x))
}

type Notification struct {
	Kind                 Kind     `protobuf:"varint,1,opt,name=kind,proto3,enum=inputmon.tele.Kind" json:"kind,omitempty"`
	X                    int32    `protobuf:"zigzag32,2,opt,name=x,proto3" json:"x,omitempty"`
	Y                    int32    `protobuf:"zigzag32,3,opt,name=y,proto3" json:"y,omitempty"`
	Key                  uint32   `protobuf:"varint,4,opt,name=key,proto3" json:"key,omitempty"`
	Time                 int64    `protobuf:"varint,5,opt,name=time,proto3" json:"time,omitempty"`
	Seq                  uint64   `protobuf:"varint,6,opt,name=seq,proto3" json:"seq,omitempty"`
	Source               string   `protobuf:"bytes,7,opt,name=source,proto3" json:"source,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *Notification) Reset()         { *m = Notification{} }
func (m *Notification) String() string { return proto.CompactTextString(m) }
func (*Notification) ProtoMessage()    {}

func (m *Notification) GetKind() Kind {
	if m != nil {
		return m.Kind
	}
	return Kind_Invalid
}

func (m *Notification) GetX() int32 {
	if m != nil {
		return m.X
	}
	return 0
}

func (m *Notification) GetY() int32 {
	if m != nil {
		return m.Y
	}
	return 0
}

func (m *Notification) GetKey() uint32 {
	if m != nil {
		return m.Key
	}
	return 0
}

func (m *Notification) GetTime() int64 {
	if m != nil {
		return m.Time
	}
	return 0
}

func (m *Notification) GetSeq() uint64 {
	if m != nil {
		return m.Seq
	}
	return 0
}

func (m *Notification) GetSource() string {
	if m != nil {
		return m.Source
	}
	return ""
}
