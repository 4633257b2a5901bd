package actor

import (
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type vec3Field mgl64.Vec3

func (v vec3Field) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, c := range v {
		enc.AppendFloat64(c)
	}
	return nil
}

type quatField mgl64.Quat

func (q quatField) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	enc.AppendFloat64(q.W)
	return vec3Field(q.V).MarshalLogArray(enc)
}

// MarshalLogObject writes the full state of the body, so a Body can be passed to zap.Object.
func (b *Body) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if b.Name != "" {
		enc.AddString("name", b.Name)
	}
	enc.AddInt("shape", int(b.shape.Type()))
	enc.AddFloat64("invMass", b.invMass)
	enc.AddBool("fixed", b.IsFixed())

	fields := []struct {
		key string
		v   mgl64.Vec3
	}{
		{"x", b.x},
		{"P", b.p},
		{"L", b.l},
		{"v", b.v},
		{"omega", b.omega},
		{"force", b.force},
		{"torque", b.torque},
	}
	for _, f := range fields {
		if err := enc.AddArray(f.key, vec3Field(f.v)); err != nil {
			return err
		}
	}

	return enc.AddArray("q", quatField(b.q))
}

// Dump logs the body state at debug level.
func (b *Body) Dump(logger *zap.Logger) {
	logger.Debug("body", zap.Object("body", b))
}
