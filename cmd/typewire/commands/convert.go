package commands

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/lk2023060901/typewire-go/internal/json"
	"github.com/lk2023060901/typewire-go/pkg/serializer/wire"
)

type convertOptions struct {
	root   *rootOptions
	input  string
	format string
	zstd   bool
}

func (opts *convertOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "Input file, - for stdin")
	cmd.Flags().StringVarP(&opts.format, "format", "f", wire.FormatJSON, "Wire format: json or proto")
	cmd.Flags().BoolVar(&opts.zstd, "zstd", false, "Compress (or decompress) the wire bytes with zstd")
}

func (opts *convertOptions) read(cmd *cobra.Command) ([]byte, error) {
	if opts.input == "-" || opts.input == "" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(opts.input)
	return data, errors.Wrapf(err, "read %s", opts.input)
}

// codec 返回编解码器与释放函数。
func (opts *convertOptions) codec() (*wire.Codec, func(), error) {
	m, err := wire.ForFormat(opts.format)
	if err != nil {
		return nil, nil, err
	}
	reg, _, err := opts.root.loadRegistry()
	if err != nil {
		return nil, nil, err
	}
	release := func() {}
	if opts.zstd {
		c, err := wire.NewZstdCompressor(0, 0)
		if err != nil {
			return nil, nil, err
		}
		m, release = wire.Compressed(m, c), c.Close
	}
	return wire.NewCodec(reg, m), release, nil
}

func newSerializeCmd(root *rootOptions) *cobra.Command {
	opts := &convertOptions{root: root}
	cmd := &cobra.Command{
		Use:   "serialize TYPE",
		Short: "Serialize a JSON value against TYPE and write the wire bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, release, err := opts.codec()
			if err != nil {
				return err
			}
			defer release()
			data, err := opts.read(cmd)
			if err != nil {
				return err
			}
			var value any
			if err := json.Unmarshal(data, &value); err != nil {
				return errors.Wrap(err, "parse input json")
			}
			encoded, err := codec.Encode(value, args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(encoded)
			return err
		},
	}
	opts.bind(cmd)
	return cmd
}

func newDeserializeCmd(root *rootOptions) *cobra.Command {
	opts := &convertOptions{root: root}
	cmd := &cobra.Command{
		Use:   "deserialize TYPE",
		Short: "Decode wire bytes, deserialize them against TYPE and print JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, release, err := opts.codec()
			if err != nil {
				return err
			}
			defer release()
			data, err := opts.read(cmd)
			if err != nil {
				return err
			}
			value, err := codec.Decode(data, args[0])
			if err != nil {
				return err
			}
			return json.NewCanonicalEncoder(cmd.OutOrStdout()).Encode(value)
		},
	}
	opts.bind(cmd)
	return cmd
}
