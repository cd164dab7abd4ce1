package serde

import (
	"google.golang.org/protobuf/proto"
)

type protobufSerde[T proto.Message] struct{}

func Protobuf[T proto.Message]() Serde[T] {
	return protobufSerde[T]{}
}

func (s protobufSerde[T]) Serialise(topic string, value T) ([]byte, error) {
	return proto.Marshal(value)
}

func (s protobufSerde[T]) Deserialise(topic string, data []byte) (T, error) {
	var zero T
	// T is a pointer type; allocate a fresh message through reflection.
	msg := zero.ProtoReflect().New().Interface().(T)
	err := proto.Unmarshal(data, msg)
	return msg, err
}
