// Package echo is a small sample binder class used by the daemon and the
// CLI. Objects echo, reverse and count the byte arrays sent to them.
package echo

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mithrel/ndkbinder/pkg/binder"
)

const Descriptor = "com.example.IFoo"

const (
	CodeEcho    = binder.FirstCallTransaction
	CodeReverse = binder.FirstCallTransaction + 1
	CodeCount   = binder.FirstCallTransaction + 2
)

// FailArg makes a dump write its header and then report failure.
const FailArg = "--fail"

// Service is the user data of one echo object.
type Service struct {
	Name   string
	served atomic.Int32
}

// Served returns how many transactions the object has handled.
func (s *Service) Served() int32 { return s.served.Load() }

// Define registers the echo class under descriptor. Objects are created
// with Class.New(name) where name is a string.
func Define(n binder.Native, descriptor string, log *zap.Logger) (*binder.Class, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("echo")
	return binder.Define(n, descriptor, binder.Callbacks{
		OnCreate: func(args any) any {
			name, _ := args.(string)
			log.Debug("object created", zap.String("name", name))
			return &Service{Name: name}
		},
		OnDestroy: func(ud any) {
			if s, ok := ud.(*Service); ok {
				log.Debug("object destroyed", zap.String("name", s.Name), zap.Int32("served", s.Served()))
			}
		},
		OnTransact: transact,
		OnDump:     dump,
	})
}

func transact(tx *binder.Transaction) binder.Status {
	s, ok := tx.UserData().(*Service)
	if !ok {
		return binder.StatusUnexpectedNull
	}
	n := s.served.Add(1)
	switch tx.Code {
	case CodeEcho, CodeReverse:
		b, err := tx.In.ReadBytes()
		if err != nil {
			return statusOf(err)
		}
		if tx.Code == CodeReverse && b != nil {
			b = slices.Clone(b)
			slices.Reverse(b)
		}
		return statusOf(tx.Out.WriteBytes(b))
	case CodeCount:
		return statusOf(tx.Out.WriteInt32(n))
	default:
		s.served.Add(-1)
		return binder.StatusUnknownTransaction
	}
}

func dump(obj *binder.Object, out io.Writer, args []string) binder.Status {
	ud, _ := obj.UserData()
	s, ok := ud.(*Service)
	if !ok {
		return binder.StatusUnexpectedNull
	}
	fmt.Fprintf(out, "descriptor: %s\n", obj.Class())
	fmt.Fprintf(out, "name: %s\n", s.Name)
	fmt.Fprintf(out, "transactions: %d\n", s.Served())
	if len(args) > 0 {
		fmt.Fprintf(out, "args: %s\n", strings.Join(args, " "))
	}
	if slices.Contains(args, FailArg) {
		return binder.StatusInvalidOperation
	}
	return binder.StatusOK
}

func statusOf(err error) binder.Status {
	if err == nil {
		return binder.StatusOK
	}
	var st binder.Status
	if errors.As(err, &st) {
		return st
	}
	return binder.StatusUnknownError
}

// Echo sends payload with CodeEcho and returns the reply.
func Echo(obj *binder.Object, payload []byte) ([]byte, error) {
	return call(obj, CodeEcho, payload)
}

// Reverse sends payload with CodeReverse and returns the reply.
func Reverse(obj *binder.Object, payload []byte) ([]byte, error) {
	return call(obj, CodeReverse, payload)
}

// Count asks the object how many transactions it has served, this one
// included.
func Count(obj *binder.Object) (int32, error) {
	var n int32
	err := obj.Transact(CodeCount, binder.FlagNone, nil, func(p *binder.Parcel) error {
		var err error
		n, err = p.ReadInt32()
		return err
	})
	return n, err
}

// Call sends payload as a byte array with an arbitrary code and reads a byte
// array back.
func Call(obj *binder.Object, code binder.TransactionCode, payload []byte) ([]byte, error) {
	return call(obj, code, payload)
}

func call(obj *binder.Object, code binder.TransactionCode, payload []byte) ([]byte, error) {
	var reply []byte
	err := obj.Transact(code, binder.FlagNone,
		func(p *binder.Parcel) error { return p.WriteBytes(payload) },
		func(p *binder.Parcel) error {
			var err error
			reply, err = p.ReadBytes()
			return err
		})
	if err != nil {
		return nil, fmt.Errorf("transact %d on %s: %w", code, obj, err)
	}
	return reply, nil
}
