package iqstream

import (
	"fmt"
	"unsafe"

	"firestige.xyz/timedemux/internal/core"
	"firestige.xyz/timedemux/internal/iqcopy"
)

// SyncSample and Sample must stay layout-identical for CopySyncToSample.
// Each difference below is a uintptr constant: if either side grows, shrinks or
// reorders I and Q, one of them goes negative and the package no longer builds.
const (
	_ = unsafe.Sizeof(SyncSample{}) - unsafe.Sizeof(Sample{})
	_ = unsafe.Sizeof(Sample{}) - unsafe.Sizeof(SyncSample{})

	_ = unsafe.Offsetof(SyncSample{}.I) - unsafe.Offsetof(Sample{}.I)
	_ = unsafe.Offsetof(Sample{}.I) - unsafe.Offsetof(SyncSample{}.I)
	_ = unsafe.Sizeof(SyncSample{}.I) - unsafe.Sizeof(Sample{}.I)
	_ = unsafe.Sizeof(Sample{}.I) - unsafe.Sizeof(SyncSample{}.I)

	_ = unsafe.Offsetof(SyncSample{}.Q) - unsafe.Offsetof(Sample{}.Q)
	_ = unsafe.Offsetof(Sample{}.Q) - unsafe.Offsetof(SyncSample{}.Q)
	_ = unsafe.Sizeof(SyncSample{}.Q) - unsafe.Sizeof(Sample{}.Q)
	_ = unsafe.Sizeof(Sample{}.Q) - unsafe.Sizeof(SyncSample{}.Q)
)

var (
	// SampleLayout is the memory layout of Sample.
	SampleLayout = iqcopy.Layout{
		Size:    unsafe.Sizeof(Sample{}),
		IOffset: unsafe.Offsetof(Sample{}.I),
		ISize:   unsafe.Sizeof(Sample{}.I),
		QOffset: unsafe.Offsetof(Sample{}.Q),
		QSize:   unsafe.Sizeof(Sample{}.Q),
	}

	// SyncSampleLayout is the memory layout of SyncSample.
	SyncSampleLayout = iqcopy.Layout{
		Size:    unsafe.Sizeof(SyncSample{}),
		IOffset: unsafe.Offsetof(SyncSample{}.I),
		ISize:   unsafe.Sizeof(SyncSample{}.I),
		QOffset: unsafe.Offsetof(SyncSample{}.Q),
		QSize:   unsafe.Sizeof(SyncSample{}.Q),
	}
)

// Copy strategies accepted by SyncToSampleCopier.
const (
	CopyAuto   = "auto"
	CopyFields = "fields"
)

// CopySyncToSample is the pinned fast path from iqstream_with_sync records to
// iqstream records.
var CopySyncToSample = iqcopy.Bulk[SyncSample, Sample](SyncSampleLayout, SampleLayout)

// CopySyncToSampleFields is the field-wise copy for the same pair.
var CopySyncToSampleFields = iqcopy.Fields[SyncSample, Sample]()

// CopySample copies iqstream records unchanged.
var CopySample = iqcopy.Same[Sample]()

// SyncToSampleCopier returns the copier for strategy. An empty strategy is auto.
func SyncToSampleCopier(strategy string) (iqcopy.Copier[SyncSample, Sample], error) {
	switch strategy {
	case CopyAuto, "":
		return CopySyncToSample, nil
	case CopyFields:
		return CopySyncToSampleFields, nil
	default:
		return nil, fmt.Errorf("%w: unknown copy strategy %q (must be %s or %s)",
			core.ErrConfigInvalid, strategy, CopyAuto, CopyFields)
	}
}

// Record is a sample record type carried on the wire.
type Record interface {
	Sample | SyncSample
}

// CopyPayload copies the whole records of payload into dst and returns the
// number copied. An aligned payload goes through copier; a misaligned one is
// decoded record by record.
func CopyPayload[S Record](copier iqcopy.Copier[S, Sample], dst []Sample, payload []byte) int {
	payload = Whole(payload)
	if src, err := view[S](payload); err == nil {
		return copier(dst, src)
	}
	return Decode(dst, payload)
}
