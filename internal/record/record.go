// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务
//
// Package record holds the telemetry sample model shared by the normalizer,
// the playback sequencer and the frame dispatcher.

package record

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Group names a cluster of related numeric fields reported together
type Group string

const (
	GroupDHT11     Group = "dht11"
	GroupBMP280    Group = "bmp280"
	GroupAccel     Group = "accel"
	GroupGyro      Group = "gyro"
	GroupVibration Group = "vibration"
	GroupGPS       Group = "gps"
)

// Groups lists every sensor group in dispatch order
var Groups = []Group{GroupDHT11, GroupBMP280, GroupAccel, GroupGyro, GroupVibration, GroupGPS}

var groupFields = map[Group][]string{
	GroupDHT11:     {"temperature", "humidity"},
	GroupBMP280:    {"temperature", "pressure", "altitude"},
	GroupAccel:     {"x", "y", "z"},
	GroupGyro:      {"x", "y", "z"},
	GroupVibration: {"level"},
	GroupGPS:       {"latitude", "longitude", "altitude"},
}

// Fields returns the field names of the group in emission order.
// Unknown groups have no fields.
func (g Group) Fields() []string {
	return groupFields[g]
}

// Valid reports whether g is one of the known sensor groups
func (g Group) Valid() bool {
	_, ok := groupFields[g]
	return ok
}

// Value is a single numeric field. Valid is false when the field was
// missing from the source sample; such values encode as JSON null.
type Value struct {
	Float64 float64
	Valid   bool
}

// Float wraps v as a present value
func Float(v float64) Value {
	return Value{Float64: v, Valid: true}
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.Float64, 'f', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid value %s: %w", data, err)
	}
	*v = Float(f)
	return nil
}

// DHT11 temperature/humidity sensor
type DHT11 struct {
	Temperature Value `json:"temperature"`
	Humidity    Value `json:"humidity"`
}

// BMP280 barometric sensor
type BMP280 struct {
	Temperature Value `json:"temperature"`
	Pressure    Value `json:"pressure"`
	Altitude    Value `json:"altitude"`
}

// Vector3 is a 3-axis reading
type Vector3 struct {
	X Value `json:"x"`
	Y Value `json:"y"`
	Z Value `json:"z"`
}

// MPU9250 inertial measurement unit
type MPU9250 struct {
	Accel *Vector3 `json:"accel,omitempty"`
	Gyro  *Vector3 `json:"gyro,omitempty"`
}

// Vibration sensor
type Vibration struct {
	Level Value `json:"level"`
}

// GPS fix
type GPS struct {
	Latitude  Value `json:"latitude"`
	Longitude Value `json:"longitude"`
	Altitude  Value `json:"altitude"`
}

// Record is one telemetry sample. A nil group pointer means the sensor did
// not report in this sample. Timestamp is seconds since epoch, zero when
// unknown.
type Record struct {
	Timestamp float64    `json:"timestamp,omitempty"`
	DHT11     *DHT11     `json:"dht11,omitempty"`
	BMP280    *BMP280    `json:"bmp280,omitempty"`
	MPU9250   *MPU9250   `json:"mpu9250,omitempty"`
	Vibration *Vibration `json:"vibration,omitempty"`
	GPS       *GPS       `json:"gps,omitempty"`
}

// Reading is the ordered values of one present group
type Reading struct {
	Group  Group
	Values []Value
}

// HasTimestamp reports whether the sample carries a usable timestamp
func (r Record) HasTimestamp() bool {
	return r.Timestamp > 0
}

// Time converts the timestamp to a time.Time, zero when unknown
func (r Record) Time() time.Time {
	if !r.HasTimestamp() {
		return time.Time{}
	}
	sec, frac := math.Modf(r.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// Readings returns the present groups in dispatch order
func (r Record) Readings() []Reading {
	var out []Reading
	if r.DHT11 != nil {
		out = append(out, Reading{GroupDHT11, []Value{r.DHT11.Temperature, r.DHT11.Humidity}})
	}
	if r.BMP280 != nil {
		out = append(out, Reading{GroupBMP280, []Value{r.BMP280.Temperature, r.BMP280.Pressure, r.BMP280.Altitude}})
	}
	if r.MPU9250 != nil && r.MPU9250.Accel != nil {
		a := r.MPU9250.Accel
		out = append(out, Reading{GroupAccel, []Value{a.X, a.Y, a.Z}})
	}
	if r.MPU9250 != nil && r.MPU9250.Gyro != nil {
		g := r.MPU9250.Gyro
		out = append(out, Reading{GroupGyro, []Value{g.X, g.Y, g.Z}})
	}
	if r.Vibration != nil {
		out = append(out, Reading{GroupVibration, []Value{r.Vibration.Level}})
	}
	if r.GPS != nil {
		out = append(out, Reading{GroupGPS, []Value{r.GPS.Latitude, r.GPS.Longitude, r.GPS.Altitude}})
	}
	return out
}

// Empty reports whether no sensor group is present
func (r Record) Empty() bool {
	return len(r.Readings()) == 0
}
