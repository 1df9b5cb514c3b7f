// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// TelemetryReplay - 传感器遥测日志回放服务

package record

import (
	"errors"

	"github.com/tidwall/gjson"
)

var (
	ErrInvalidJSON = errors.New("record: invalid json")
	ErrNotObject   = errors.New("record: not a json object")
)

// Parse decodes one serialized sample
func Parse(text string) (Record, error) {
	if !gjson.Valid(text) {
		return Record{}, ErrInvalidJSON
	}
	return Decode(gjson.Parse(text))
}

// Decode converts an already parsed JSON value into a Record. Groups whose
// value is not an object are treated as absent; non-numeric fields inside a
// present group decode as invalid values.
func Decode(v gjson.Result) (Record, error) {
	if !v.IsObject() {
		return Record{}, ErrNotObject
	}

	var r Record
	if ts := v.Get("timestamp"); ts.Type == gjson.Number && ts.Num > 0 {
		r.Timestamp = ts.Num
	}

	if g, ok := object(v, "dht11"); ok {
		r.DHT11 = &DHT11{
			Temperature: number(g, "temperature"),
			Humidity:    number(g, "humidity"),
		}
	}
	if g, ok := object(v, "bmp280"); ok {
		r.BMP280 = &BMP280{
			Temperature: number(g, "temperature"),
			Pressure:    number(g, "pressure"),
			Altitude:    number(g, "altitude"),
		}
	}
	if m, ok := object(v, "mpu9250"); ok {
		r.MPU9250 = &MPU9250{}
		if a, ok := object(m, "accel"); ok {
			r.MPU9250.Accel = vector(a)
		}
		if g, ok := object(m, "gyro"); ok {
			r.MPU9250.Gyro = vector(g)
		}
	}
	if g, ok := object(v, "vibration"); ok {
		r.Vibration = &Vibration{Level: number(g, "level")}
	}
	if g, ok := object(v, "gps"); ok {
		r.GPS = &GPS{
			Latitude:  number(g, "latitude"),
			Longitude: number(g, "longitude"),
			Altitude:  number(g, "altitude"),
		}
	}

	return r, nil
}

func object(v gjson.Result, key string) (gjson.Result, bool) {
	g := v.Get(key)
	return g, g.IsObject()
}

func number(v gjson.Result, key string) Value {
	f := v.Get(key)
	if f.Type != gjson.Number {
		return Value{}
	}
	return Float(f.Num)
}

func vector(v gjson.Result) *Vector3 {
	return &Vector3{X: number(v, "x"), Y: number(v, "y"), Z: number(v, "z")}
}
