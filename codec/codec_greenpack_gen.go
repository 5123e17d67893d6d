package codec

// NOTE: THIS FILE WAS PRODUCED BY THE
// GREENPACK CODE GENERATION TOOL (github.com/glycerine/greenpack)
// DO NOT EDIT

import (
	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg implements msgp.Marshaler
func (z *EncryptedData) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	// map header, size 2
	o = msgp.AppendMapHeader(o, 2)
	// write "Nonce"
	o = msgp.AppendString(o, "Nonce")
	o = msgp.AppendBytes(o, z.Nonce)
	// write "EncryptedData"
	o = msgp.AppendString(o, "EncryptedData")
	o = msgp.AppendBytes(o, z.EncryptedData)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *EncryptedData) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	_ = field
	var sz uint32
	sz, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	for sz > 0 {
		sz--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return
		}
		switch msgp.UnsafeString(field) {
		case "Nonce":
			z.Nonce, bts, err = msgp.ReadBytesBytes(bts, z.Nonce)
			if err != nil {
				return
			}
		case "EncryptedData":
			z.EncryptedData, bts, err = msgp.ReadBytesBytes(bts, z.EncryptedData)
			if err != nil {
				return
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *EncryptedData) Msgsize() (s int) {
	s = 1 + 6 + msgp.BytesPrefixSize + len(z.Nonce) + 14 + msgp.BytesPrefixSize + len(z.EncryptedData)
	return
}

// MarshalMsg implements msgp.Marshaler
func (z *CompressedData) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	// map header, size 2
	o = msgp.AppendMapHeader(o, 2)
	// write "CompressionType"
	o = msgp.AppendString(o, "CompressionType")
	o = msgp.AppendByte(o, byte(z.CompressionType))
	// write "RawData"
	o = msgp.AppendString(o, "RawData")
	o = msgp.AppendBytes(o, z.RawData)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *CompressedData) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	_ = field
	var sz uint32
	sz, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	for sz > 0 {
		sz--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return
		}
		switch msgp.UnsafeString(field) {
		case "CompressionType":
			{
				var zb byte
				zb, bts, err = msgp.ReadByteBytes(bts)
				if err != nil {
					return
				}
				z.CompressionType = CompressionType(zb)
			}
		case "RawData":
			z.RawData, bts, err = msgp.ReadBytesBytes(bts, z.RawData)
			if err != nil {
				return
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *CompressedData) Msgsize() (s int) {
	s = 1 + 16 + msgp.ByteSize + 8 + msgp.BytesPrefixSize + len(z.RawData)
	return
}
