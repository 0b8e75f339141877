package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the stored types. Times are kept as Unix
// microseconds and always decode to UTC.
var (
	IDMUS              = idMUS{}
	SourceKindMUS      = sourceKindMUS{}
	KnowledgeRecordMUS = knowledgeRecordMUS{}
	BatchStateMUS      = batchStateMUS{}

	timeMicroMUS    = timeMicro{}
	rawMessageMUS   = rawMessage{}
	float32SliceMUS = float32Slice{}
)

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	return ID(tmp), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s idMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type sourceKindMUS struct{}

func (s sourceKindMUS) Marshal(v SourceKind, bs []byte) (n int) {
	return ord.String.Marshal(string(v), bs)
}

func (s sourceKindMUS) Unmarshal(bs []byte) (v SourceKind, n int, err error) {
	tmp, n, err := ord.String.Unmarshal(bs)
	return SourceKind(tmp), n, err
}

func (s sourceKindMUS) Size(v SourceKind) (size int) {
	return ord.String.Size(string(v))
}

func (s sourceKindMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type timeMicro struct{}

func (s timeMicro) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (s timeMicro) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func (s timeMicro) Size(v time.Time) (size int) {
	return varint.Int64.Size(v.UnixMicro())
}

// Meta is stored as an opaque string; empty decodes to nil.
type rawMessage struct{}

func (s rawMessage) Marshal(v json.RawMessage, bs []byte) (n int) {
	return ord.String.Marshal(string(v), bs)
}

func (s rawMessage) Unmarshal(bs []byte) (v json.RawMessage, n int, err error) {
	tmp, n, err := ord.String.Unmarshal(bs)
	if err != nil || tmp == "" {
		return nil, n, err
	}
	return json.RawMessage(tmp), n, nil
}

func (s rawMessage) Size(v json.RawMessage) (size int) {
	return ord.String.Size(string(v))
}

// Vectors are a varint length followed by fixed-width floats. An empty
// vector decodes to nil.
type float32Slice struct{}

func (s float32Slice) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func (s float32Slice) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > (len(bs)-n)/raw.Float32.Size(0) {
		return nil, n, fmt.Errorf("%w: vector length %d", ErrMalformedEncoding, length)
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]float32, length)
	var n1 int
	for i := range v {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return
}

func (s float32Slice) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return
}

type knowledgeRecordMUS struct{}

func (s knowledgeRecordMUS) Marshal(v KnowledgeRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.Link, bs[n:])
	n += SourceKindMUS.Marshal(v.Kind, bs[n:])
	n += ord.String.Marshal(v.SourceID, bs[n:])
	n += rawMessageMUS.Marshal(v.Meta, bs[n:])
	n += float32SliceMUS.Marshal(v.Vector, bs[n:])
	n += timeMicroMUS.Marshal(v.InsertedAt, bs[n:])
	n += timeMicroMUS.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (s knowledgeRecordMUS) Unmarshal(bs []byte) (v KnowledgeRecord, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Link, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Kind, n1, err = SourceKindMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SourceID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Meta, n1, err = rawMessageMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = float32SliceMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = timeMicroMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMicroMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s knowledgeRecordMUS) Size(v KnowledgeRecord) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Content)
	size += ord.String.Size(v.Link)
	size += SourceKindMUS.Size(v.Kind)
	size += ord.String.Size(v.SourceID)
	size += rawMessageMUS.Size(v.Meta)
	size += float32SliceMUS.Size(v.Vector)
	size += timeMicroMUS.Size(v.InsertedAt)
	return size + timeMicroMUS.Size(v.UpdatedAt)
}

func (s knowledgeRecordMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type batchStateMUS struct{}

func (s batchStateMUS) Marshal(v BatchState, bs []byte) (n int) {
	n = ord.String.Marshal(v.Key, bs)
	n += varint.Int.Marshal(v.Records, bs[n:])
	n += timeMicroMUS.Marshal(v.ProcessedAt, bs[n:])
	return
}

func (s batchStateMUS) Unmarshal(bs []byte) (v BatchState, n int, err error) {
	v.Key, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Records, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ProcessedAt, n1, err = timeMicroMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s batchStateMUS) Size(v BatchState) (size int) {
	size = ord.String.Size(v.Key)
	size += varint.Int.Size(v.Records)
	return size + timeMicroMUS.Size(v.ProcessedAt)
}

func (s batchStateMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
