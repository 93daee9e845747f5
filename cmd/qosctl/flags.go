// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"code.hybscloud.com/idiom/qos"
)

var (
	_ pflag.Value = (*durabilityFlag)(nil)
	_ pflag.Value = (*reliabilityFlag)(nil)
	_ pflag.Value = (*profileFlag)(nil)
	_ pflag.Value = (*choiceFlag)(nil)
)

type durabilityFlag struct{ kind qos.DurabilityKind }

func (f *durabilityFlag) String() string { return f.kind.String() }
func (f *durabilityFlag) Type() string   { return "durability" }

func (f *durabilityFlag) Set(s string) error {
	k, err := qos.ParseDurabilityKind(s)
	if err != nil {
		return err
	}
	f.kind = k
	return nil
}

// reliabilityFlag is unset until Set is called; an unset flag emits no
// Reliability policy.
type reliabilityFlag struct {
	kind qos.ReliabilityKind
	set  bool
}

func (f *reliabilityFlag) String() string {
	if !f.set {
		return ""
	}
	return f.kind.String()
}

func (f *reliabilityFlag) Type() string { return "reliability" }

func (f *reliabilityFlag) Set(s string) error {
	k, err := qos.ParseReliabilityKind(s)
	if err != nil {
		return err
	}
	f.kind, f.set = k, true
	return nil
}

type profileFlag struct{ profile qos.Profile }

func (f *profileFlag) String() string { return f.profile.String() }
func (f *profileFlag) Type() string   { return "profile" }

func (f *profileFlag) Set(s string) error {
	p, err := qos.ParseProfile(s)
	if err != nil {
		return err
	}
	f.profile = p
	return nil
}

// choiceFlag accepts one of a fixed set of values.
type choiceFlag struct {
	value   string
	choices []string
}

func newChoice(def string, choices ...string) *choiceFlag {
	return &choiceFlag{value: def, choices: choices}
}

func (f *choiceFlag) String() string { return f.value }
func (f *choiceFlag) Type() string   { return "string" }

func (f *choiceFlag) Set(s string) error {
	for _, c := range f.choices {
		if s == c {
			f.value = s
			return nil
		}
	}
	return fmt.Errorf("must be one of %v", f.choices)
}
