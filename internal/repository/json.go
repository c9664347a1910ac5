package repository

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/commerce-core/internal/domain/order"
	"github.com/xenking/commerce-core/internal/operation"
)

// jx codecs for the JSONB columns. Hand-rolled rather than reflected so the
// stored shape is explicit and stable across refactors of the Go structs.

func encodeAdjustments(adjs []order.Adjustment) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, adj := range adjs {
		encodeAdjustment(&e, adj)
	}
	e.ArrEnd()
	return e.Bytes()
}

func encodeAdjustment(e *jx.Encoder, adj order.Adjustment) {
	e.ObjStart()
	e.FieldStart("adjustmentSource")
	e.Str(adj.Source)
	e.FieldStart("type")
	e.Str(string(adj.Type))
	e.FieldStart("description")
	e.Str(adj.Description)
	e.FieldStart("amount")
	e.Int64(adj.Amount)
	e.ObjEnd()
}

func decodeAdjustments(data []byte) ([]order.Adjustment, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out []order.Adjustment
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		adj, err := decodeAdjustment(d)
		if err != nil {
			return err
		}
		out = append(out, adj)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode adjustments")
	}
	return out, nil
}

func decodeAdjustment(d *jx.Decoder) (order.Adjustment, error) {
	var adj order.Adjustment
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "adjustmentSource":
			adj.Source, err = d.Str()
		case "type":
			var s string
			s, err = d.Str()
			adj.Type = order.AdjustmentType(s)
		case "description":
			adj.Description, err = d.Str()
		case "amount":
			adj.Amount, err = d.Int64()
		default:
			err = d.Skip()
		}
		return err
	})
	return adj, err
}

func encodeConfigured(cfgs []operation.Configured) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, cfg := range cfgs {
		e.ObjStart()
		e.FieldStart("code")
		e.Str(cfg.Code)
		e.FieldStart("args")
		e.ArrStart()
		for _, arg := range cfg.Args {
			e.ObjStart()
			e.FieldStart("name")
			e.Str(arg.Name)
			e.FieldStart("value")
			e.Str(arg.Value)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeConfigured(data []byte) ([]operation.Configured, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out []operation.Configured
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		var cfg operation.Configured
		err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "code":
				var err error
				cfg.Code, err = d.Str()
				return err
			case "args":
				return d.Arr(func(d *jx.Decoder) error {
					var arg operation.Arg
					err := d.Obj(func(d *jx.Decoder, key string) error {
						var err error
						switch key {
						case "name":
							arg.Name, err = d.Str()
						case "value":
							arg.Value, err = d.Str()
						default:
							err = d.Skip()
						}
						return err
					})
					if err != nil {
						return err
					}
					cfg.Args = append(cfg.Args, arg)
					return nil
				})
			default:
				return d.Skip()
			}
		})
		if err != nil {
			return err
		}
		out = append(out, cfg)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode configured operations")
	}
	return out, nil
}

func encodeSingleConfigured(cfg operation.Configured) []byte {
	return encodeConfigured([]operation.Configured{cfg})
}

func decodeSingleConfigured(data []byte) (operation.Configured, error) {
	cfgs, err := decodeConfigured(data)
	if err != nil {
		return operation.Configured{}, err
	}
	if len(cfgs) == 0 {
		return operation.Configured{}, nil
	}
	return cfgs[0], nil
}

func encodeAddress(addr order.Address) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("fullName")
	e.Str(addr.FullName)
	e.FieldStart("streetLine1")
	e.Str(addr.StreetLine1)
	e.FieldStart("city")
	e.Str(addr.City)
	e.FieldStart("postalCode")
	e.Str(addr.PostalCode)
	e.FieldStart("countryCode")
	e.Str(addr.CountryCode)
	e.ObjEnd()
	return e.Bytes()
}

func decodeAddress(data []byte) (order.Address, error) {
	var addr order.Address
	if len(data) == 0 {
		return addr, nil
	}
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "fullName":
			addr.FullName, err = d.Str()
		case "streetLine1":
			addr.StreetLine1, err = d.Str()
		case "city":
			addr.City, err = d.Str()
		case "postalCode":
			addr.PostalCode, err = d.Str()
		case "countryCode":
			addr.CountryCode, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return addr, errors.Wrap(err, "decode address")
	}
	return addr, nil
}

func encodeShippingLine(sl *order.ShippingLine) []byte {
	if sl == nil {
		return nil
	}
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("methodId")
	e.Str(sl.MethodID)
	e.FieldStart("methodCode")
	e.Str(sl.MethodCode)
	e.FieldStart("taxRate")
	e.Str(sl.TaxRate.String())
	e.FieldStart("adjustments")
	e.ArrStart()
	for _, adj := range sl.Adjustments {
		encodeAdjustment(&e, adj)
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

func decodeShippingLine(data []byte) (*order.ShippingLine, error) {
	if len(data) == 0 {
		return nil, nil
	}
	sl := &order.ShippingLine{}
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "methodId":
			sl.MethodID, err = d.Str()
		case "methodCode":
			sl.MethodCode, err = d.Str()
		case "taxRate":
			var s string
			if s, err = d.Str(); err == nil {
				sl.TaxRate, err = decimal.NewFromString(s)
			}
		case "adjustments":
			err = d.Arr(func(d *jx.Decoder) error {
				adj, err := decodeAdjustment(d)
				if err != nil {
					return err
				}
				sl.Adjustments = append(sl.Adjustments, adj)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode shipping line")
	}
	return sl, nil
}
