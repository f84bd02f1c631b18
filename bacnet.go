package bachome

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/vanti-dev/gobacnet"
	"github.com/vanti-dev/gobacnet/property"
	"github.com/vanti-dev/gobacnet/types"

	"github.com/brutella/hap/log"
)

const bacnetMaxAPDU = 1476

// bacnetClient implements PresentValueClient on top of gobacnet. One client,
// one socket, shared by every zone; gobacnet serializes invoke IDs internally.
type bacnetClient struct {
	c *gobacnet.Client

	mu      sync.Mutex
	devices map[string]types.Device // resolved destination per address string
}

func newBACnetClient(iface string, port int) (*bacnetClient, error) {
	c, err := gobacnet.NewClient(iface, port)
	if err != nil {
		return nil, err
	}

	return &bacnetClient{
		c:       c,
		devices: make(map[string]types.Device),
	}, nil
}

func (b *bacnetClient) Close() {
	b.c.Close()
}

// device resolves an "ip:port" string into a BACnet destination. Resolution
// is cached; the address never changes for the life of the process.
func (b *bacnetClient) device(addr string) (types.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if d, ok := b.devices[addr]; ok {
		return d, nil
	}

	udp, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return types.Device{}, &TransportError{Op: "resolve", Err: err}
	}

	d := types.Device{
		Addr:    types.UDPToAddress(udp),
		MaxApdu: bacnetMaxAPDU,
	}
	b.devices[addr] = d
	return d, nil
}

func (b *bacnetClient) ReadPresentValue(addr string, ref ObjectReference) (float64, error) {
	dest, err := b.device(addr)
	if err != nil {
		return 0, err
	}

	rp := types.ReadPropertyData{
		Object: types.Object{
			ID: types.ObjectID{
				Type:     types.ObjectType(ref.Type),
				Instance: types.ObjectInstance(ref.Instance),
			},
			Properties: []types.Property{
				{
					ID:         property.PresentValue,
					ArrayIndex: gobacnet.ArrayAll,
				},
			},
		},
	}

	resp, err := b.c.ReadProperty(context.Background(), dest, rp)
	if err != nil {
		return 0, &TransportError{Op: fmt.Sprintf("read %s", ref), Err: err}
	}

	v, err := scalar(resp)
	if err != nil {
		return 0, &TransportError{Op: fmt.Sprintf("read %s", ref), Err: err}
	}
	return v, nil
}

func (b *bacnetClient) WritePresentValue(addr string, ref ObjectReference, pv PresentValue) (float64, error) {
	dest, err := b.device(addr)
	if err != nil {
		return 0, err
	}

	// the application tag is picked from the Go type of Data
	var data interface{}
	switch pv.Tag {
	case TagUnsigned:
		data = uint32(pv.Value)
	default:
		data = float32(pv.Value)
	}

	wp := types.ReadPropertyData{
		Object: types.Object{
			ID: types.ObjectID{
				Type:     types.ObjectType(ref.Type),
				Instance: types.ObjectInstance(ref.Instance),
			},
			Properties: []types.Property{
				{
					ID:         property.PresentValue,
					ArrayIndex: gobacnet.ArrayAll,
					Data:       data,
				},
			},
		},
	}

	if err := b.c.WriteProperty(context.Background(), dest, wp, 0); err != nil {
		return 0, &TransportError{Op: fmt.Sprintf("write %s", ref), Err: err}
	}

	// the simple-ack carries no value; echo what we sent
	return pv.Value, nil
}

// scalar pulls the first value out of a read response envelope.
func scalar(pd types.ReadPropertyData) (float64, error) {
	if len(pd.Object.Properties) == 0 {
		return 0, fmt.Errorf("empty read response")
	}

	switch v := pd.Object.Properties[0].Data.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case uint32:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case int:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected present-value type %T", v)
	}
}

// Discover sweeps the network and logs what answers. Used at startup when no
// device address is configured, so the operator has something to paste into
// the config file.
func (b *bacnetClient) Discover() {
	devs, err := b.c.WhoIs(context.Background(), 0, 0x3FFFFF)
	if err != nil {
		log.Info.Printf("who-is sweep failed: %s", err.Error())
		return
	}

	for _, d := range devs {
		log.Info.Printf("discovered BACnet device %d (vendor %d) at %v", d.ID.Instance, d.Vendor, d.Addr)
	}
}
