package wire

import "fmt"

// Question is one entry of the message's Question section.
type Question struct {
	Name  Label
	Type  uint16
	Class uint16
}

func (q Question) pack(buf *Buffer, c *Compressor) {
	c.WriteName(buf, q.Name, true)
	buf.WriteUint16(q.Type)
	buf.WriteUint16(q.Class)
}

func parseQuestion(buf *Buffer, msg []byte) (Question, error) {
	name, err := ReadName(buf, msg)
	if err != nil {
		return Question{}, fmt.Errorf("%w: question name: %w", ErrDNS, err)
	}
	typ, err := buf.ReadUint16()
	if err != nil {
		return Question{}, fmt.Errorf("%w: question type: %v", ErrDNS, err)
	}
	class, err := buf.ReadUint16()
	if err != nil {
		return Question{}, fmt.Errorf("%w: question class: %v", ErrDNS, err)
	}
	return Question{Name: name, Type: typ, Class: class}, nil
}

// String renders the question in DiG's ";NAME\tCLASS\tTYPE" form.
func (q Question) String() string {
	return fmt.Sprintf(";%s\t%s\t%s", q.Name, Classes.NameOf(q.Class), RRTypes.NameOf(q.Type))
}

// ZoneText renders the question as a zone-file style line, without the
// leading ';' DiG uses.
func (q Question) ZoneText() string {
	return fmt.Sprintf("%s\t%s\t%s", q.Name, Classes.NameOf(q.Class), RRTypes.NameOf(q.Type))
}
