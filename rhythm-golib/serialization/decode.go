package serialization

import (
	"compress/bzip2"
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"io"
	"io/ioutil"
	"os"
	"reflect"
	"strings"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
)

// Decoder is an interface that matches gob.Decoder and json.Decoder
type Decoder interface {
	// Decode extracts an object from the stream
	Decode(interface{}) error
}

// ErrStop may be returned from a Decode handler to end the stream early
// without reporting an error.
var ErrStop = errors.New("stop processing requested")

// Decode reads objects from the file at path. Compression is chosen by a
// trailing .gz or .bz2 extension and the encoding by the .json or .gob
// extension underneath it. The handler is either a pointer, which receives
// the first object in the file, or a function taking a pointer, which is
// invoked once per object until the stream ends:
//
//   var reds int
//   err := serialization.Decode("/tmp/apples.json.gz", func(a *apple) {
//     reds += a.Redness
//   })
func Decode(path string, handler interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "error loading %s", path)
	}
	defer f.Close()
	return decodeAs(f, path, handler)
}

// decodeAs reads objects from r, taking the compression and encoding from
// path rather than from the source of the bytes.
func decodeAs(r io.Reader, path string, handler interface{}) error {
	body, name, err := decompress(r, path)
	if err != nil {
		return errors.Wrapf(err, "error loading %s", path)
	}
	defer body.Close()

	var dec Decoder
	switch {
	case strings.HasSuffix(name, ".json"):
		dec = json.NewDecoder(body)
	case strings.HasSuffix(name, ".gob"):
		dec = gob.NewDecoder(body)
	default:
		return errors.Errorf("could not find decoder for %s", path)
	}

	if reflect.ValueOf(handler).Kind() == reflect.Ptr {
		return dec.Decode(handler)
	}
	if err := decodeStream(dec, handler); err != nil {
		return errors.Wrapf(err, "error decoding %s", path)
	}
	return nil
}

// decompress unwraps any compression layer named by the path extension and
// returns the remaining name for the encoding switch.
func decompress(r io.Reader, path string) (io.ReadCloser, string, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		body, err := gzip.NewReader(r)
		if err != nil {
			return nil, "", err
		}
		return body, strings.TrimSuffix(path, ".gz"), nil
	case strings.HasSuffix(path, ".bz2"):
		return ioutil.NopCloser(bzip2.NewReader(r)), strings.TrimSuffix(path, ".bz2"), nil
	}
	return ioutil.NopCloser(r), path, nil
}

// decodeStream feeds each object in the stream to the handler, which must be
// a function of one pointer argument returning nothing or an error.
func decodeStream(dec Decoder, handler interface{}) error {
	fn := reflect.ValueOf(handler)
	if fn.Kind() != reflect.Func {
		panic("decode handler must be a pointer or a function")
	}
	t := fn.Type()
	if t.NumIn() != 1 || t.In(0).Kind() != reflect.Ptr {
		panic("decode handler must take exactly one pointer argument")
	}
	if t.NumOut() > 1 {
		panic("decode handler must return nothing or an error")
	}

	elem := t.In(0).Elem()
	for {
		obj := reflect.New(elem)
		if err := dec.Decode(obj.Interface()); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		ret := fn.Call([]reflect.Value{obj})
		if len(ret) == 1 && !ret[0].IsNil() {
			if err := ret[0].Interface().(error); err != ErrStop {
				return err
			}
			return nil
		}
	}
}
