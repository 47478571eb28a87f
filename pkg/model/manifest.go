package model

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lk2023060901/typewire-go/internal/json"
	"github.com/lk2023060901/typewire-go/pkg/log"
	"github.com/lk2023060901/typewire-go/pkg/util/merr"
)

// FormatVersion 是当前写出的清单格式版本。读取时只接受主版本相同的清单。
const FormatVersion = "1.0.0"

var supportedVersion = semver.MustParse(FormatVersion)

// ManifestFormat 是清单文件的编码格式。
type ManifestFormat string

const (
	ManifestYAML ManifestFormat = "yaml"
	ManifestJSON ManifestFormat = "json"
)

// FormatOf 按扩展名推断清单格式，无法识别时返回错误。
func FormatOf(path string) (ManifestFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ManifestYAML, nil
	case ".json":
		return ManifestJSON, nil
	default:
		return "", merr.WrapErrManifestInvalid(path, "unknown manifest extension")
	}
}

// ReadManifest 从 r 读取清单，检查格式版本并校验定义。
func ReadManifest(r io.Reader, format ManifestFormat) (*ApiDefinition, error) {
	api := &ApiDefinition{}
	switch format {
	case ManifestYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(api); err != nil {
			return nil, errors.Wrap(merr.WrapErrManifestInvalid(string(format), err.Error()), "decode manifest")
		}
	case ManifestJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(api); err != nil {
			return nil, errors.Wrap(merr.WrapErrManifestInvalid(string(format), err.Error()), "decode manifest")
		}
	default:
		return nil, merr.WrapErrParameterInvalidMsg("unknown manifest format %q", format)
	}

	if err := checkVersion(api.FormatVersion); err != nil {
		return nil, err
	}
	if err := api.Validate(); err != nil {
		return nil, err
	}
	return api, nil
}

// ParseManifest 从内存中的清单内容读取。
func ParseManifest(data []byte, format ManifestFormat) (*ApiDefinition, error) {
	return ReadManifest(bytes.NewReader(data), format)
}

// LoadManifest 读取清单文件，格式由扩展名决定。
func LoadManifest(path string) (*ApiDefinition, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open manifest %s", path)
	}
	defer f.Close()

	api, err := ReadManifest(f, format)
	if err != nil {
		return nil, errors.Wrapf(err, "load manifest %s", path)
	}
	log.Debug("manifest loaded",
		zap.String("path", path),
		zap.String("formatVersion", api.FormatVersion),
		zap.Int("classes", len(api.Classes)),
		zap.Int("enums", len(api.Enums)),
		zap.Int("blackBoxes", len(api.BlackBoxes)))
	return api, nil
}

// WriteManifest 将 api 规范化后写入 w。写出的内容对相同的定义是稳定的。
func WriteManifest(w io.Writer, api *ApiDefinition, format ManifestFormat) error {
	if err := api.Validate(); err != nil {
		return err
	}
	out := *api
	out.Classes = append([]ClassDefinition(nil), api.Classes...)
	out.Enums = append([]EnumDefinition(nil), api.Enums...)
	out.BlackBoxes = append(out.BlackBoxes[:0:0], api.BlackBoxes...)
	out.Normalize()
	if out.FormatVersion == "" {
		out.FormatVersion = FormatVersion
	}

	switch format {
	case ManifestYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&out); err != nil {
			return errors.Wrap(err, "encode manifest")
		}
		return enc.Close()
	case ManifestJSON:
		return errors.Wrap(json.NewCanonicalEncoder(w).Encode(&out), "encode manifest")
	default:
		return merr.WrapErrParameterInvalidMsg("unknown manifest format %q", format)
	}
}

// SaveManifest 将 api 写入 path，格式由扩展名决定。
func SaveManifest(path string, api *ApiDefinition) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := WriteManifest(&buf, api, format); err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0o644), "write manifest %s", path)
}

func checkVersion(version string) error {
	if version == "" {
		return merr.WrapErrManifestVersion(version, FormatVersion)
	}
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return errors.Wrap(merr.WrapErrManifestVersion(version, FormatVersion), err.Error())
	}
	if v.Major != supportedVersion.Major {
		return merr.WrapErrManifestVersion(version, FormatVersion)
	}
	if v.GT(supportedVersion) {
		log.Warn("manifest written by a newer minor format version",
			zap.String("version", version), zap.String("supported", FormatVersion))
	}
	return nil
}
