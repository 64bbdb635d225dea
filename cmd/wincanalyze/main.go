package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/soypat/atwinc1500/m2m"
	"github.com/soypat/saleae"
	"github.com/soypat/saleae/analyzers"
)

// Optional flags.
var (
	timingsOutput string
)

type BusCtl struct {
	// Input capture taken with CRC7 protection still enabled, so every
	// command carries one trailing CRC byte.
	CRC             bool
	TrimForce       uint
	OmitRead        bool
	OmitWrite       bool
	OmitIneffectual bool
	// Annotate writes to the HIF state register with the decoded packet
	// group and opcode.
	DecodeHif bool
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "wincanalyze - Process binary Saleae digital data files corresponding to ATWINC1500 transactions.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	sdio := flag.String("f-sd", "digital_1.bin", "Input filename: SPI SDO/SDI data.")
	enable := flag.String("f-cs", "digital_0.bin", "Input filename: SPI CS/SS data.")
	clk := flag.String("f-clk", "digital_2.bin", "Input filename: SPI CLK data.")
	output := flag.String("o-cmd", "commands.txt", "Output filename of ATWINC1500 command transactions.")

	flag.StringVar(&timingsOutput, "o-time", "", "Output timing data to a file corresponding to output command history line-by-line.")
	flagCRC := flag.Bool("crc", false, "Capture taken with CRC7 command protection on.")
	flagTrimForce := flag.Uint("trim-force", 0, "Trims n bytes off the end of every command.")
	omitReadAll := flag.Bool("omit-read", false, "Choose to omit read commands in output.")
	omitWriteAll := flag.Bool("omit-write", false, "Choose to omit write commands in output.")
	omitIneffectual := flag.Bool("omit-inef", false, "Omit data after the command size.")
	decodeHif := flag.Bool("decode-hif", true, "Annotate HIF state register writes with group and opcode names.")
	flag.Parse()
	BUS := BusCtl{
		CRC:             *flagCRC,
		TrimForce:       *flagTrimForce,
		OmitRead:        *omitReadAll,
		OmitWrite:       *omitWriteAll,
		OmitIneffectual: *omitIneffectual,
		DecodeHif:       *decodeHif,
	}
	if BUS.OmitRead && BUS.OmitWrite {
		log.Fatal("cannot omit both read and write commands")
	}
	start := time.Now()
	if err := BUS.run(*sdio, *enable, *clk, *output); err != nil {
		log.Fatal(err.Error())
	}
	log.Println("finished in", time.Since(start))
}

func (bus *BusCtl) run(sdio, enable, clk, output string) error {
	const fmtMsg = "cmd×%2d %s data=%#x"
	commands, err := bus.processSpiFiles(sdio, clk, enable)
	if err != nil {
		return err
	}
	fp, err := os.Create(output)
	if err != nil {
		return err
	}
	defer fp.Close()

	var timings *os.File
	if timingsOutput != "" {
		log.Println("creating timings file", timingsOutput)
		timings, err = os.Create(timingsOutput)
		if err != nil {
			return err
		}
		defer timings.Close()
	}

	for _, action := range commands {
		if (bus.OmitRead && !action.Cmd.Write) || (bus.OmitWrite && action.Cmd.Write) {
			continue
		}
		if bus.OmitIneffectual && action.Cmd.Size < uint32(len(action.Data)) {
			action.Data = action.Data[:action.Cmd.Size]
		}
		if action.Cmd.Size < uint32(len(action.Data)) {
			// Print a space demarcating end of the command data.
			// Anything after space is response bytes clocked in the same
			// chip select window, not command data.
			fmt.Fprintf(fp, fmtMsg, action.Num, action.Cmd.String(), action.Data[:action.Cmd.Size])
			_, err = fmt.Fprintf(fp, " %x", action.Data[action.Cmd.Size:])
		} else {
			_, err = fmt.Fprintf(fp, fmtMsg, action.Num, action.Cmd.String(), action.Data)
		}
		if err != nil {
			return err
		}
		if bus.DecodeHif {
			if note := hifNote(action.Cmd); note != "" {
				fmt.Fprintf(fp, "  ; %s", note)
			}
		}
		fmt.Fprintln(fp)
		if timings != nil {
			fmt.Fprintf(timings, "t=%f\tdata=%#x\n", action.Start, action.Data)
		}
	}
	return nil
}

func (bus *BusCtl) processSpiFiles(fsdio, fclk, fenable string) ([]winctx, error) {
	sdio, err := opendigital(fsdio)
	if err != nil {
		return nil, err
	}
	clk, err := opendigital(fclk)
	if err != nil {
		return nil, err
	}
	enable, err := opendigital(fenable)
	if err != nil {
		return nil, err
	}
	spi := analyzers.SPI{}
	txs, _ := spi.Scan(clk, enable, sdio, sdio)
	return bus.process(txs), nil
}

func opendigital(filename string) (*saleae.DigitalFile, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	df, err := saleae.ReadDigitalFile(fp)
	if err != nil {
		return nil, err
	}
	return df, nil
}

// WINCCmd is one decoded command off the bus: the protocol byte, the register
// or memory address it touches and either the immediate value carried by a
// write or the byte count of a DMA transfer.
type WINCCmd struct {
	Cmd   m2m.Cmd
	Write bool
	// Clockless register access, address at or below the clockless limit.
	Clockless bool
	Addr      uint32
	Val       uint32
	HasVal    bool
	Size      uint32
}

func (cmd *WINCCmd) String() string {
	val := "         "
	if cmd.HasVal {
		val = fmt.Sprintf("%#9x", cmd.Val)
	}
	return fmt.Sprintf("addr=%#8x  op=%-18s val=%s sz=%4v write=%5v clockless=%5v",
		cmd.Addr, cmd.Cmd.String(), val, cmd.Size, cmd.Write, cmd.Clockless)
}

// CommandFromBytes splits one chip select window into the decoded command and
// the remaining response bytes.
func (bus *BusCtl) CommandFromBytes(b []byte) (cmd WINCCmd, data []byte) {
	if len(b) == 0 {
		return cmd, b
	}
	cmd.Cmd = m2m.Cmd(b[0])
	n := int(m2m.CmdSize(cmd.Cmd))
	if bus.CRC && n > 0 {
		n++
	}
	if n == 0 || len(b) < n {
		// Not a command byte, or a truncated capture window.
		return cmd, b
	}
	switch cmd.Cmd {
	case m2m.CMD_SINGLE_READ:
		cmd.Addr = uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	case m2m.CMD_SINGLE_WRITE:
		cmd.Write = true
		cmd.Addr = uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		cmd.Val = uint32(b[4])<<24 | uint32(b[5])<<16 | uint32(b[6])<<8 | uint32(b[7])
		cmd.HasVal = true
	case m2m.CMD_INTERNAL_READ:
		cmd.Clockless = b[1]&0x80 != 0
		cmd.Addr = uint32(b[1]&0x7f)<<8 | uint32(b[2])
	case m2m.CMD_INTERNAL_WRITE:
		cmd.Write = true
		cmd.Clockless = b[1]&0x80 != 0
		cmd.Addr = uint32(b[1]&0x7f)<<8 | uint32(b[2])
		cmd.Val = uint32(b[3])<<24 | uint32(b[4])<<16 | uint32(b[5])<<8 | uint32(b[6])
		cmd.HasVal = true
	case m2m.CMD_DMA_READ, m2m.CMD_DMA_WRITE:
		cmd.Write = cmd.Cmd == m2m.CMD_DMA_WRITE
		cmd.Addr = uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		cmd.Size = uint32(b[4])<<8 | uint32(b[5])
	case m2m.CMD_DMA_EXT_READ, m2m.CMD_DMA_EXT_WRITE:
		cmd.Write = cmd.Cmd == m2m.CMD_DMA_EXT_WRITE
		cmd.Addr = uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		cmd.Size = uint32(b[4])<<16 | uint32(b[5])<<8 | uint32(b[6])
	}
	data = b[n:]
	if bus.TrimForce > 0 {
		data = data[:max(0, len(data)-int(bus.TrimForce))]
	}
	return cmd, data
}

// hifNote decodes writes to the HIF state register into the packet group and
// opcode they announce.
func hifNote(cmd WINCCmd) string {
	if !cmd.Write || !cmd.HasVal || cmd.Addr != m2m.NMI_STATE_REG {
		return ""
	}
	group := m2m.GroupID(cmd.Val & 0xff)
	opcode := uint8(cmd.Val >> 8)
	switch group {
	case m2m.GROUP_WIFI:
		return "hif " + group.String() + "/" + m2m.DecodeWifiCommand(opcode).String()
	case m2m.GROUP_IP:
		return "hif " + group.String() + "/" + m2m.DecodeSocketCommand(opcode).String()
	}
	return ""
}

type winctx struct {
	Num   int
	Cmd   WINCCmd
	Data  []byte
	Start float64
}

func (bus *BusCtl) process(txs []analyzers.TxSPI) (wtxs []winctx) {
	var accumulativeResults int = 1
	for i := 0; i < len(txs); i++ {
		tx := txs[i]
		cmd, data := bus.CommandFromBytes(tx.SDO)
		for j := i + 1; j < len(txs); j++ {
			nextcmd, nextdata := bus.CommandFromBytes(txs[j].SDO)
			if nextcmd != cmd || !bytes.Equal(data, nextdata) {
				break
			}
			accumulativeResults++
			i = j
		}
		wtxs = append(wtxs, winctx{
			Num:   accumulativeResults,
			Cmd:   cmd,
			Data:  data,
			Start: tx.StartTime(),
		})
		accumulativeResults = 1
	}
	return wtxs
}
