package routeros

// Record models for the subset of the RouterOS REST surface the dashboard
// depends on. Field names mirror the device's kebab-case keys; Flag and
// Long absorb the stringly-typed values.

// SystemResource is the singleton at /system/resource.
type SystemResource struct {
	Uptime           string `json:"uptime"`
	Version          string `json:"version"`
	BoardName        string `json:"board-name"`
	Platform         string `json:"platform"`
	ArchitectureName string `json:"architecture-name"`
	CPULoad          Long   `json:"cpu-load"`
	CPUCount         Long   `json:"cpu-count"`
	CPUFrequency     Long   `json:"cpu-frequency"`
	TotalMemory      Long   `json:"total-memory"`
	FreeMemory       Long   `json:"free-memory"`
	TotalHDDSpace    Long   `json:"total-hdd-space"`
	FreeHDDSpace     Long   `json:"free-hdd-space"`
}

// Identity is the singleton at /system/identity.
type Identity struct {
	Name string `json:"name"`
}

// HealthMetric is one row of /system/health (voltage, temperature, fans).
type HealthMetric struct {
	ID    string `json:".id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Interface is one row of /interface.
type Interface struct {
	ID              string `json:".id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	DefaultName     string `json:"default-name"`
	MACAddress      string `json:"mac-address"`
	MTU             Long   `json:"mtu"`
	ActualMTU       Long   `json:"actual-mtu"`
	RxByte          Long   `json:"rx-byte"`
	TxByte          Long   `json:"tx-byte"`
	RxPacket        Long   `json:"rx-packet"`
	TxPacket        Long   `json:"tx-packet"`
	RxError         Long   `json:"rx-error"`
	TxError         Long   `json:"tx-error"`
	LinkDowns       Long   `json:"link-downs"`
	LastLinkUpTime  string `json:"last-link-up-time"`
	Running         Flag   `json:"running"`
	Disabled        Flag   `json:"disabled"`
	Comment         string `json:"comment"`
}

// EthernetInterface is one row of /interface/ethernet (physical ports).
type EthernetInterface struct {
	ID          string `json:".id"`
	Name        string `json:"name"`
	DefaultName string `json:"default-name"`
	MACAddress  string `json:"mac-address"`
	Speed       string `json:"speed"`
	FullDuplex  Flag   `json:"full-duplex"`
	Running     Flag   `json:"running"`
	Disabled    Flag   `json:"disabled"`
	PoEOut      string `json:"poe-out"`
	Comment     string `json:"comment"`
}

// WirelessInterface is one row of /interface/wireless.
type WirelessInterface struct {
	ID       string `json:".id"`
	Name     string `json:"name"`
	SSID     string `json:"ssid"`
	Band     string `json:"band"`
	Channel  string `json:"channel"`
	Running  Flag   `json:"running"`
	Disabled Flag   `json:"disabled"`
}

// WifiRegistration is one row of the wireless registration table.
type WifiRegistration struct {
	ID             string `json:".id"`
	Interface      string `json:"interface"`
	MACAddress     string `json:"mac-address"`
	SignalStrength string `json:"signal-strength"`
	TxRate         string `json:"tx-rate"`
	RxRate         string `json:"rx-rate"`
	Uptime         string `json:"uptime"`
}

// DHCPLease is one row of /ip/dhcp-server/lease.
type DHCPLease struct {
	ID            string `json:".id"`
	Address       string `json:"address"`
	MACAddress    string `json:"mac-address"`
	HostName      string `json:"host-name"`
	Server        string `json:"server"`
	Status        string `json:"status"`
	ActiveAddress string `json:"active-address"`
	ExpiresAfter  string `json:"expires-after"`
	LastSeen      string `json:"last-seen"`
	Dynamic       Flag   `json:"dynamic"`
	Disabled      Flag   `json:"disabled"`
	Comment       string `json:"comment"`
}

// IPAddress is one row of /ip/address.
type IPAddress struct {
	ID              string `json:".id"`
	Address         string `json:"address"`
	Network         string `json:"network"`
	Interface       string `json:"interface"`
	ActualInterface string `json:"actual-interface"`
	Dynamic         Flag   `json:"dynamic"`
	Disabled        Flag   `json:"disabled"`
	Invalid         Flag   `json:"invalid"`
}

// Route is one row of /ip/route. ImmediateGW carries the resolved next
// hop in "ip%interface" form on newer firmware.
type Route struct {
	ID            string `json:".id"`
	DstAddress    string `json:"dst-address"`
	Gateway       string `json:"gateway"`
	GatewayStatus string `json:"gateway-status"`
	ImmediateGW   string `json:"immediate-gw"`
	RoutingTable  string `json:"routing-table"`
	Distance      Long   `json:"distance"`
	Active        Flag   `json:"active"`
	Dynamic       Flag   `json:"dynamic"`
	Static        Flag   `json:"static"`
	Disabled      Flag   `json:"disabled"`
	Comment       string `json:"comment"`
}

// FirewallRule is one row of /ip/firewall/filter.
type FirewallRule struct {
	ID         string `json:".id"`
	Chain      string `json:"chain"`
	Action     string `json:"action"`
	Protocol   string `json:"protocol"`
	SrcAddress string `json:"src-address"`
	DstAddress string `json:"dst-address"`
	Disabled   Flag   `json:"disabled"`
	Comment    string `json:"comment"`
}

// Connection is one row of the firewall connection table.
type Connection struct {
	ID         string `json:".id"`
	Protocol   string `json:"protocol"`
	SrcAddress string `json:"src-address"`
	DstAddress string `json:"dst-address"`
	TCPState   string `json:"tcp-state"`
	Timeout    string `json:"timeout"`
}

// PPPSession is one row of the active PPP session table. Interface names
// the underlying physical interface the tunnel runs over.
type PPPSession struct {
	ID        string `json:".id"`
	Name      string `json:"name"`
	Service   string `json:"service"`
	Interface string `json:"interface"`
	Address   string `json:"address"`
	Uptime    string `json:"uptime"`
}

// User is one row of /user.
type User struct {
	ID           string `json:".id"`
	Name         string `json:"name"`
	Group        string `json:"group"`
	Disabled     Flag   `json:"disabled"`
	LastLoggedIn string `json:"last-logged-in"`
	Comment      string `json:"comment"`
}

// UserGroup is one row of /user/group. Policy is the comma-separated
// policy token list.
type UserGroup struct {
	ID     string `json:".id"`
	Name   string `json:"name"`
	Policy string `json:"policy"`
}

// PingResult is one row of the /ping action response. Received zero means
// the target did not answer.
type PingResult struct {
	Host       string `json:"host"`
	Sent       Long   `json:"sent"`
	Received   Long   `json:"received"`
	PacketLoss Long   `json:"packet-loss"`
	Time       string `json:"time"`
	AvgRTT     string `json:"avg-rtt"`
}
