package telemetry

import "go.opentelemetry.io/otel/attribute"

// Stage is the dispatch step that decided a call's result.
type Stage int

func (s Stage) String() string {
	switch s {
	case StagePrefix:
		return "prefix"
	case StageReal:
		return "real"
	case StageSuffix:
		return "suffix"
	case StageUnknown:
		fallthrough
	default:
		return "unknown"
	}
}

const (
	StageUnknown Stage = iota
	StagePrefix
	StageReal
	StageSuffix
)

// Attribute keys.
const (
	KeyClass   = attribute.Key("proxy.class")
	KeyMember  = attribute.Key("proxy.member")
	KeyStage   = attribute.Key("proxy.stage")
	KeyLazy    = attribute.Key("proxy.lazy")
	KeyTrigger = attribute.Key("proxy.trigger")
)

func Class(name string) attribute.KeyValue {
	return KeyClass.String(name)
}

func Member(name string) attribute.KeyValue {
	return KeyMember.String(name)
}

func ResolvedBy(s Stage) attribute.KeyValue {
	return KeyStage.String(s.String())
}

func Lazy(lazy bool) attribute.KeyValue {
	return KeyLazy.Bool(lazy)
}

func Trigger(member string) attribute.KeyValue {
	return KeyTrigger.String(member)
}
